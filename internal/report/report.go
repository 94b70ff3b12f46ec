// Package report serializes discovery results as JSON, YAML, terminal
// tables, or HTML plots.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/tablescope/tablescope/internal/discover"
)

// maxTablePairs caps the number of pairs rendered in the terminal table;
// full results go to the structured formats.
const maxTablePairs = 50

// WriteJSON writes the result as indented JSON.
func WriteJSON(res *discover.Result, w io.Writer) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	return nil
}

// WriteYAML writes the result as YAML.
func WriteYAML(res *discover.Result, w io.Writer) error {
	data, err := yaml.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	return nil
}

// WriteTable renders a human-readable summary and the top pairs.
func WriteTable(res *discover.Result, w io.Writer, noColor bool) error {
	heading := color.New(color.Bold)
	if noColor {
		heading.DisableColor()
	}

	_, err := heading.Fprintf(w, "Discovery run %s\n", res.RunID)
	if err != nil {
		return fmt.Errorf("write heading: %w", err)
	}

	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.AppendRows([]table.Row{
		{"threshold", fmt.Sprintf("%.2f", res.Threshold)},
		{"permutations", res.Permutations},
		{"bands x rows", fmt.Sprintf("%d x %d", res.Bands, res.Rows)},
		{"tables", humanize.Comma(int64(res.Tables))},
		{"columns", humanize.Comma(int64(res.Columns))},
		{"skipped columns", humanize.Comma(int64(res.SkippedColumns))},
		{"similar pairs", humanize.Comma(int64(len(res.Pairs)))},
		{"similar tables", humanize.Comma(int64(len(res.TablePairs)))},
		{"index time", res.Stats.IndexDuration.Round(time.Millisecond)},
		{"query time", res.Stats.QueryDuration.Round(time.Millisecond)},
		{"query mean", fmt.Sprintf("%.3gs", res.Stats.QueryMeanSeconds)},
		{"query p95", fmt.Sprintf("%.3gs", res.Stats.QueryP95Seconds)},
	})
	summary.Render()

	renderPairs(w, res.Pairs)
	renderPairs(w, res.TablePairs)

	return nil
}

// renderPairs writes one pair listing, truncated to the table cap.
func renderPairs(w io.Writer, list []discover.Pair) {
	if len(list) == 0 {
		return
	}

	pairs := table.NewWriter()
	pairs.SetOutputMirror(w)
	pairs.AppendHeader(table.Row{"left", "right", "estimate"})

	shown := len(list)
	if shown > maxTablePairs {
		shown = maxTablePairs
	}

	for _, p := range list[:shown] {
		pairs.AppendRow(table.Row{p.Left, p.Right, fmt.Sprintf("%.3f", p.Estimate)})
	}

	if shown < len(list) {
		pairs.AppendFooter(table.Row{"", "omitted", humanize.Comma(int64(len(list) - shown))})
	}

	pairs.Render()
}
