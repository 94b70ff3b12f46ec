// Package observability provides the OTel metric instruments and the HTTP
// diagnostics endpoints for discovery runs.
package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricSketchesTotal   = "tablescope.sketches.total"
	metricInsertsTotal    = "tablescope.index.inserts.total"
	metricQueriesTotal    = "tablescope.index.queries.total"
	metricCandidatesTotal = "tablescope.index.candidates.total"
	metricQueryDuration   = "tablescope.index.query.duration.seconds"

	attrTable = "table"
)

// queryBucketBoundaries covers microsecond-scale bucket lookups up to
// multi-second scans of hot buckets.
var queryBucketBoundaries = []float64{
	0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 5,
}

// DiscoveryMetrics holds the instruments recorded by a discovery run.
type DiscoveryMetrics struct {
	sketchesTotal   metric.Int64Counter
	insertsTotal    metric.Int64Counter
	queriesTotal    metric.Int64Counter
	candidatesTotal metric.Int64Counter
	queryDuration   metric.Float64Histogram
}

// NewDiscoveryMetrics creates the discovery instruments from the given meter.
func NewDiscoveryMetrics(mt metric.Meter) (*DiscoveryMetrics, error) {
	sketches, err1 := mt.Int64Counter(metricSketchesTotal,
		metric.WithDescription("Total number of column sketches built"),
		metric.WithUnit("{sketch}"))

	inserts, err2 := mt.Int64Counter(metricInsertsTotal,
		metric.WithDescription("Total number of index inserts"),
		metric.WithUnit("{insert}"))

	queries, err3 := mt.Int64Counter(metricQueriesTotal,
		metric.WithDescription("Total number of index queries"),
		metric.WithUnit("{query}"))

	candidates, err4 := mt.Int64Counter(metricCandidatesTotal,
		metric.WithDescription("Total number of candidate keys returned by queries"),
		metric.WithUnit("{candidate}"))

	duration, err5 := mt.Float64Histogram(metricQueryDuration,
		metric.WithDescription("Index query duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(queryBucketBoundaries...))

	err := errors.Join(err1, err2, err3, err4, err5)
	if err != nil {
		return nil, err
	}

	return &DiscoveryMetrics{
		sketchesTotal:   sketches,
		insertsTotal:    inserts,
		queriesTotal:    queries,
		candidatesTotal: candidates,
		queryDuration:   duration,
	}, nil
}

// RecordSketch counts one sketch built for a column of the given table.
func (dm *DiscoveryMetrics) RecordSketch(ctx context.Context, table string) {
	dm.sketchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrTable, table)))
}

// RecordInsert counts one index insert.
func (dm *DiscoveryMetrics) RecordInsert(ctx context.Context) {
	dm.insertsTotal.Add(ctx, 1)
}

// RecordQuery counts one index query with its candidate count and duration.
func (dm *DiscoveryMetrics) RecordQuery(ctx context.Context, candidates int, duration time.Duration) {
	dm.queriesTotal.Add(ctx, 1)
	dm.candidatesTotal.Add(ctx, int64(candidates))
	dm.queryDuration.Record(ctx, duration.Seconds())
}
