// Package corpus enumerates CSV datasets and extracts per-column value
// sets for similarity discovery.
//
// A table's first row is its header; every later row contributes one value
// per column. Values are deduplicated and empty cells are dropped, so each
// column arrives downstream as a set of non-null strings.
package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// csvExtension is the file extension of corpus tables.
const csvExtension = ".csv"

// nameSeparator joins a table name and a column name into a qualified
// column name.
const nameSeparator = "->"

var (
	// ErrNoFiles is returned when a corpus directory holds no CSV files.
	ErrNoFiles = errors.New("corpus: no csv files found")

	// ErrEmptyTable is returned when a CSV file has no header row.
	ErrEmptyTable = errors.New("corpus: table has no header row")
)

// ColumnID identifies a column across the corpus. It is an FNV-1a hash of
// the column's qualified "table->column" name.
type ColumnID uint64

// Column is one table column materialized as a set of string values.
type Column struct {
	ID     ColumnID
	Table  string
	Name   string
	Values []string
}

// QualifiedName returns the "table-><column>" form used in reports.
func (c Column) QualifiedName() string {
	return c.Table + nameSeparator + c.Name
}

// EnumerateFiles lists the CSV files directly under dir, sorted by name.
func EnumerateFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if strings.EqualFold(filepath.Ext(entry.Name()), csvExtension) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	sort.Strings(files)

	return files, nil
}

// ReadColumns parses one CSV file into its columns. Rows shorter than the
// header are padded with absent cells; empty cells never become values.
func ReadColumns(path string) ([]Column, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse table %s: %w", path, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTable, path)
	}

	table := filepath.Base(path)
	header := rows[0]
	sets := make([]map[string]struct{}, len(header))

	for i := range sets {
		sets[i] = make(map[string]struct{})
	}

	for _, row := range rows[1:] {
		for i, cell := range row {
			if i >= len(sets) || cell == "" {
				continue
			}

			sets[i][cell] = struct{}{}
		}
	}

	columns := make([]Column, 0, len(header))

	for i, name := range header {
		values := make([]string, 0, len(sets[i]))
		for v := range sets[i] {
			values = append(values, v)
		}

		sort.Strings(values)

		columns = append(columns, Column{
			ID:     columnID(table, name),
			Table:  table,
			Name:   name,
			Values: values,
		})
	}

	return columns, nil
}

// columnID hashes the qualified column name to a stable identifier.
func columnID(table, column string) ColumnID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(table + nameSeparator + column))

	return ColumnID(h.Sum64())
}
