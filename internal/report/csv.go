// Package report renders pipeline output for consumption outside the
// analysis core: CSV tables, an envelope grid figure and the
// polarity-vs-depth scatter. It reads Result/Envelope values and never
// feeds anything back into the pipeline.
package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/retina-data/ipl.report/internal/analysis"
)

// CSVWriter wraps csv.Writer with methods for the analysis output tables.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter creates a CSVWriter on the given destination.
func NewCSVWriter(dst io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(dst)}
}

// WriteEnvelopes writes one row per (group, depth bin) cell with the
// envelope scalar bundle and the shared global range.
func (c *CSVWriter) WriteEnvelopes(res *analysis.Result) error {
	header := []string{
		"group", "bin", "bin_center", "n_rois",
		"env_min", "env_max", "env_median", "env_range", "env_center",
		"global_range",
	}
	if err := c.w.Write(header); err != nil {
		return err
	}
	for _, cell := range res.Cells {
		row := []string{
			cell.Key.String(),
			fmt.Sprintf("%d", cell.Bin),
			fmt.Sprintf("%.4f", cell.BinCenter),
			fmt.Sprintf("%d", cell.Env.N),
			fmt.Sprintf("%.6f", cell.Env.Min),
			fmt.Sprintf("%.6f", cell.Env.Max),
			fmt.Sprintf("%.6f", cell.Env.Median),
			fmt.Sprintf("%.6f", cell.Env.Range),
			fmt.Sprintf("%.6f", cell.Env.Center),
			fmt.Sprintf("%.6f", res.GlobalRange),
		}
		if err := c.w.Write(row); err != nil {
			return err
		}
	}
	c.w.Flush()
	return c.w.Error()
}

// WriteProfiles writes the per-bin scalar summaries (polarity or power)
// for each group, one row per (group, bin).
func (c *CSVWriter) WriteProfiles(metric string, profiles []analysis.DepthProfile) error {
	header := []string{"group", "bin_center", "n_rois", metric + "_mean", metric + "_sem"}
	if err := c.w.Write(header); err != nil {
		return err
	}
	for _, prof := range profiles {
		for _, bin := range prof.Bins {
			row := []string{
				prof.Key.String(),
				fmt.Sprintf("%.4f", bin.Center),
				fmt.Sprintf("%d", bin.N),
				fmt.Sprintf("%.6f", bin.Mean),
				fmt.Sprintf("%.6f", bin.SEM),
			}
			if err := c.w.Write(row); err != nil {
				return err
			}
		}
	}
	c.w.Flush()
	return c.w.Error()
}
