package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/tablescope/tablescope/internal/discover"
	"github.com/tablescope/tablescope/pkg/alg/lsh"
)

// Plot display constants.
const (
	plotChartHeight = "400px"
	plotCurveSteps  = 100
	plotMaxBars     = 30
)

// WritePlot renders the run as an HTML page: the collision S-curve for the
// chosen band/row split, and a bar chart of the estimated similarity of the
// first plotMaxBars column pairs. Table-level pairs are not plotted.
func WritePlot(res *discover.Result, w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "tablescope discovery"

	page.AddCharts(
		sCurveChart(res),
		pairEstimateChart(res),
	)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}

// sCurveChart plots the band-collision probability against true Jaccard
// similarity, with the run's threshold called out.
func sCurveChart(res *discover.Result) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Collision probability",
			Subtitle: fmt.Sprintf("S(x; %d bands, %d rows), threshold %.2f", res.Bands, res.Rows, res.Threshold),
		}),
		charts.WithInitializationOpts(opts.Initialization{Height: plotChartHeight}),
	)

	xs := make([]string, 0, plotCurveSteps+1)
	ys := make([]opts.LineData, 0, plotCurveSteps+1)

	for i := 0; i <= plotCurveSteps; i++ {
		x := float64(i) / plotCurveSteps
		xs = append(xs, fmt.Sprintf("%.2f", x))
		ys = append(ys, opts.LineData{Value: lsh.SCurve(x, res.Bands, res.Rows)})
	}

	line.SetXAxis(xs).AddSeries("S(x)", ys)

	return line
}

// pairEstimateChart plots the similarity estimates of the top discovered
// pairs.
func pairEstimateChart(res *discover.Result) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Top similar pairs",
			Subtitle: "Estimated Jaccard similarity per discovered column pair",
		}),
		charts.WithInitializationOpts(opts.Initialization{Height: plotChartHeight}),
	)

	shown := len(res.Pairs)
	if shown > plotMaxBars {
		shown = plotMaxBars
	}

	labels := make([]string, 0, shown)
	values := make([]opts.BarData, 0, shown)

	for _, p := range res.Pairs[:shown] {
		labels = append(labels, p.Left+" / "+p.Right)
		values = append(values, opts.BarData{Value: p.Estimate})
	}

	bar.SetXAxis(labels).AddSeries("estimate", values)

	return bar
}
