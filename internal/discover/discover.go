// Package discover runs all-pairs similarity discovery over a corpus of
// CSV columns: every column becomes a MinHash sketch, sketches are indexed
// under a banded LSH index, and each sketch is queried back to collect the
// pairs of columns whose estimated Jaccard similarity clears the threshold.
// A second pass merges each table's column sketches into a union sketch
// and reports table-level pairs the same way.
package discover

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/tablescope/tablescope/internal/corpus"
	"github.com/tablescope/tablescope/internal/observability"
	"github.com/tablescope/tablescope/pkg/alg/lsh"
	"github.com/tablescope/tablescope/pkg/alg/minhash"
)

// p95 is the upper quantile reported for query latency.
const p95 = 0.95

// Options configures a discovery run.
type Options struct {
	// Threshold is the Jaccard similarity above which column pairs are
	// reported.
	Threshold float64

	// Permutations is the MinHash sketch width.
	Permutations int

	// FPWeight and FNWeight steer the band/row optimizer.
	FPWeight float64
	FNWeight float64

	// Bands and Rows, when both positive, bypass the optimizer.
	Bands int
	Rows  int

	// ShowProgress renders a per-file progress bar on stderr.
	ShowProgress bool
}

// Pair is one discovered column pair with its estimated similarity.
type Pair struct {
	Left     string  `json:"left" yaml:"left"`
	Right    string  `json:"right" yaml:"right"`
	Estimate float64 `json:"estimate" yaml:"estimate"`
}

// Stats aggregates run timings.
type Stats struct {
	IndexDuration    time.Duration `json:"index_duration" yaml:"index_duration"`
	QueryDuration    time.Duration `json:"query_duration" yaml:"query_duration"`
	QueryMeanSeconds float64       `json:"query_mean_seconds" yaml:"query_mean_seconds"`
	QueryP95Seconds  float64       `json:"query_p95_seconds" yaml:"query_p95_seconds"`
}

// Result is the outcome of one discovery run.
type Result struct {
	RunID          string  `json:"run_id" yaml:"run_id"`
	Threshold      float64 `json:"threshold" yaml:"threshold"`
	Permutations   int     `json:"permutations" yaml:"permutations"`
	Bands          int     `json:"bands" yaml:"bands"`
	Rows           int     `json:"rows" yaml:"rows"`
	Tables         int     `json:"tables" yaml:"tables"`
	Columns        int     `json:"columns" yaml:"columns"`
	SkippedColumns int     `json:"skipped_columns" yaml:"skipped_columns"`
	Pairs          []Pair  `json:"pairs" yaml:"pairs"`
	TablePairs     []Pair  `json:"table_pairs" yaml:"table_pairs"`
	Stats          Stats   `json:"stats" yaml:"stats"`
}

// Runner executes discovery runs. The metrics sink may be nil, in which
// case no instruments are recorded.
type Runner struct {
	opts    Options
	logger  *slog.Logger
	metrics *observability.DiscoveryMetrics
}

// NewRunner creates a runner with the given options, logger, and optional
// metrics sink.
func NewRunner(opts Options, logger *slog.Logger, metrics *observability.DiscoveryMetrics) *Runner {
	return &Runner{
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// entry pairs a corpus column with its sketch for the query phase.
type entry struct {
	id     corpus.ColumnID
	name   string
	sketch *minhash.Sketch
}

// tableEntry pairs a table with the union sketch of all its columns.
type tableEntry struct {
	name   string
	sketch *minhash.Sketch
}

// Run discovers similar column pairs across the CSV files under dir.
func (r *Runner) Run(ctx context.Context, dir string) (*Result, error) {
	files, err := corpus.EnumerateFiles(dir)
	if err != nil {
		return nil, err
	}

	idx, err := r.newIndex()
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:        uuid.NewString(),
		Threshold:    r.opts.Threshold,
		Permutations: r.opts.Permutations,
		Bands:        idx.Bands(),
		Rows:         idx.Rows(),
		Tables:       len(files),
	}

	r.logger.Info("starting discovery",
		"run_id", result.RunID,
		"tables", len(files),
		"threshold", r.opts.Threshold,
		"permutations", r.opts.Permutations,
		"bands", idx.Bands(),
		"rows", idx.Rows(),
	)

	entries, tables, err := r.indexCorpus(ctx, idx, files, result)
	if err != nil {
		return nil, err
	}

	err = r.queryAllPairs(ctx, idx, entries, result)
	if err != nil {
		return nil, err
	}

	err = r.queryTablePairs(idx, tables, result)
	if err != nil {
		return nil, err
	}

	r.logger.Info("discovery finished",
		"run_id", result.RunID,
		"columns", result.Columns,
		"pairs", len(result.Pairs),
		"table_pairs", len(result.TablePairs),
		"index_duration", result.Stats.IndexDuration,
		"query_duration", result.Stats.QueryDuration,
	)

	return result, nil
}

// newIndex builds the LSH index from the run options.
func (r *Runner) newIndex() (*lsh.Index[corpus.ColumnID], error) {
	if r.opts.Bands > 0 && r.opts.Rows > 0 {
		return lsh.NewWithParams[corpus.ColumnID](
			r.opts.Threshold, r.opts.Permutations, r.opts.Bands, r.opts.Rows)
	}

	return lsh.NewWithWeights[corpus.ColumnID](
		r.opts.Threshold, r.opts.Permutations, r.opts.FPWeight, r.opts.FNWeight)
}

// indexCorpus sketches every column of every file and inserts the sketches
// into the index. Columns whose sketches saw no values are skipped,
// mirroring the validity check of the original benchmark driver. Each
// table also accumulates a union sketch of its kept columns for the
// table-level pass.
func (r *Runner) indexCorpus(
	ctx context.Context,
	idx *lsh.Index[corpus.ColumnID],
	files []string,
	result *Result,
) ([]entry, []tableEntry, error) {
	start := time.Now()

	var bar *pb.ProgressBar
	if r.opts.ShowProgress {
		bar = pb.StartNew(len(files))
		defer bar.Finish()
	}

	var (
		entries []entry
		tables  []tableEntry
	)

	for _, file := range files {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, fmt.Errorf("indexing interrupted: %w", ctxErr)
		}

		columns, err := corpus.ReadColumns(file)
		if err != nil {
			return nil, nil, err
		}

		var tableSketch *minhash.Sketch

		for _, col := range columns {
			sk, err := minhash.New(r.opts.Permutations)
			if err != nil {
				return nil, nil, err
			}

			for _, v := range col.Values {
				sk.Update([]byte(v))
			}

			if sk.IsEmpty() {
				result.SkippedColumns++

				continue
			}

			if r.metrics != nil {
				r.metrics.RecordSketch(ctx, col.Table)
			}

			insertErr := idx.Insert(col.ID, sk)
			if insertErr != nil {
				return nil, nil, insertErr
			}

			if r.metrics != nil {
				r.metrics.RecordInsert(ctx)
			}

			entries = append(entries, entry{id: col.ID, name: col.QualifiedName(), sketch: sk})

			if tableSketch == nil {
				tableSketch = sk.Clone()
			} else if mergeErr := tableSketch.Merge(sk); mergeErr != nil {
				return nil, nil, mergeErr
			}
		}

		if tableSketch != nil {
			tables = append(tables, tableEntry{name: filepath.Base(file), sketch: tableSketch})
		}

		if bar != nil {
			bar.Increment()
		}
	}

	result.Columns = len(entries)
	result.Stats.IndexDuration = time.Since(start)

	return entries, tables, nil
}

// queryAllPairs queries every sketch back against the index and collects
// the deduplicated, unordered column pairs.
func (r *Runner) queryAllPairs(
	ctx context.Context,
	idx *lsh.Index[corpus.ColumnID],
	entries []entry,
	result *Result,
) error {
	start := time.Now()

	byID := make(map[corpus.ColumnID]entry, len(entries))
	for _, e := range entries {
		byID[e.id] = e
	}

	seen := make(map[[2]corpus.ColumnID]struct{})
	latencies := make([]float64, 0, len(entries))

	for _, e := range entries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("querying interrupted: %w", ctxErr)
		}

		queryStart := time.Now()

		candidates, err := idx.Query(e.sketch)
		if err != nil {
			return err
		}

		elapsed := time.Since(queryStart)
		latencies = append(latencies, elapsed.Seconds())

		if r.metrics != nil {
			r.metrics.RecordQuery(ctx, len(candidates), elapsed)
		}

		for _, candID := range candidates {
			if candID == e.id {
				continue
			}

			key := orderedPair(e.id, candID)
			if _, dup := seen[key]; dup {
				continue
			}

			seen[key] = struct{}{}

			other, ok := byID[candID]
			if !ok {
				continue
			}

			estimate, estErr := e.sketch.EstimateJaccard(other.sketch)
			if estErr != nil {
				return estErr
			}

			if estimate < r.opts.Threshold {
				continue
			}

			result.Pairs = append(result.Pairs, Pair{
				Left:     e.name,
				Right:    other.name,
				Estimate: estimate,
			})
		}
	}

	sortPairs(result.Pairs)

	result.Stats.QueryDuration = time.Since(start)

	if len(latencies) > 0 {
		result.Stats.QueryMeanSeconds = stat.Mean(latencies, nil)

		sort.Float64s(latencies)
		result.Stats.QueryP95Seconds = stat.Quantile(p95, stat.Empirical, latencies, nil)
	}

	return nil
}

// queryTablePairs indexes each table's union sketch in a second index with
// the same band split and collects the table pairs whose unioned value
// sets clear the threshold.
func (r *Runner) queryTablePairs(
	idx *lsh.Index[corpus.ColumnID],
	tables []tableEntry,
	result *Result,
) error {
	if len(tables) < 2 {
		return nil
	}

	tableIdx, err := lsh.NewWithParams[string](
		r.opts.Threshold, r.opts.Permutations, idx.Bands(), idx.Rows())
	if err != nil {
		return err
	}

	byName := make(map[string]tableEntry, len(tables))

	for _, te := range tables {
		byName[te.name] = te

		insertErr := tableIdx.Insert(te.name, te.sketch)
		if insertErr != nil {
			return insertErr
		}
	}

	seen := make(map[[2]string]struct{})

	for _, te := range tables {
		candidates, queryErr := tableIdx.Query(te.sketch)
		if queryErr != nil {
			return queryErr
		}

		for _, name := range candidates {
			if name == te.name {
				continue
			}

			key := [2]string{te.name, name}
			if key[0] > key[1] {
				key[0], key[1] = key[1], key[0]
			}

			if _, dup := seen[key]; dup {
				continue
			}

			seen[key] = struct{}{}

			estimate, estErr := te.sketch.EstimateJaccard(byName[name].sketch)
			if estErr != nil {
				return estErr
			}

			if estimate < r.opts.Threshold {
				continue
			}

			result.TablePairs = append(result.TablePairs, Pair{
				Left:     key[0],
				Right:    key[1],
				Estimate: estimate,
			})
		}
	}

	sortPairs(result.TablePairs)

	return nil
}

// sortPairs orders pairs by descending estimate, then by name.
func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Estimate != pairs[j].Estimate {
			return pairs[i].Estimate > pairs[j].Estimate
		}

		if pairs[i].Left != pairs[j].Left {
			return pairs[i].Left < pairs[j].Left
		}

		return pairs[i].Right < pairs[j].Right
	})
}

// orderedPair normalizes an unordered ID pair into a canonical map key.
func orderedPair(a, b corpus.ColumnID) [2]corpus.ColumnID {
	if a > b {
		a, b = b, a
	}

	return [2]corpus.ColumnID{a, b}
}
