package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/retina-data/ipl.report/internal/analysis"
)

// RenderEnvelopeGrid writes an HTML page with one line chart per
// (group, depth bin) cell. Every y-axis spans the harmonised global range
// centred on the cell's own envelope centre, so amplitudes are directly
// comparable across the grid. The x-axis is labelled in seconds from the
// imaging frame rate.
func RenderEnvelopeGrid(w io.Writer, res *analysis.Result, frameRateHz float64) error {
	page := components.NewPage()
	page.PageTitle = "Envelope grid"

	for _, cell := range res.Cells {
		if cell.Env.N == 0 {
			continue
		}
		page.AddCharts(envelopeChart(cell, res.GlobalRange, frameRateHz))
	}
	return page.Render(w)
}

func envelopeChart(cell analysis.Cell, globalRange, frameRateHz float64) *charts.Line {
	env := cell.Env
	xs := make([]string, len(env.Mean))
	mean := make([]opts.LineData, len(env.Mean))
	upper := make([]opts.LineData, len(env.Mean))
	lower := make([]opts.LineData, len(env.Mean))
	for t := range env.Mean {
		xs[t] = fmt.Sprintf("%.2f", float64(t)/frameRateHz)
		mean[t] = opts.LineData{Value: env.Mean[t]}
		upper[t] = opts.LineData{Value: env.Mean[t] + env.SEM[t]}
		lower[t] = opts.LineData{Value: env.Mean[t] - env.SEM[t]}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "420px", Height: "280px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    cell.Key.String(),
			Subtitle: fmt.Sprintf("bin center %.2f, n=%d", cell.BinCenter, env.N),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time (s)"}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "z-score",
			Min:  env.Center - globalRange/2,
			Max:  env.Center + globalRange/2,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(xs).
		AddSeries("mean", mean).
		AddSeries("mean+sem", upper).
		AddSeries("mean-sem", lower)
	return line
}
