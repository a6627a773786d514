package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/retina-data/ipl.report/internal/analysis"
	"github.com/retina-data/ipl.report/internal/roi"
)

var groupColors = map[string]color.RGBA{
	"wt_ctrl": {R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	"wt_apb":  {R: 0xae, G: 0xc7, B: 0xe8, A: 0xff},
	"ko_ctrl": {R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	"ko_apb":  {R: 0xff, G: 0x98, B: 0x96, A: 0xff},
}

// SavePolarityScatter writes a PNG scatter of polarity index vs IPL depth,
// one colour per base group, restricted to ROIs meeting the per-genotype
// reliability gate. Matches the gating used by the polarity depth profile.
func SavePolarityScatter(path string, pop *roi.Population, p analysis.SummaryParams) error {
	pl := plot.New()
	pl.Title.Text = "Polarity vs IPL depth"
	pl.X.Label.Text = "IPL depth"
	pl.Y.Label.Text = "polarity index"
	pl.X.Min, pl.X.Max = 0, 1
	pl.Y.Min, pl.Y.Max = -1, 1

	classifier := analysis.NewClassifier(p.LayerDivider)
	for _, key := range analysis.BaseKeys() {
		mask := classifier.Mask(pop, key)
		threshold := p.MinReliability[key.Genotype]

		var pts plotter.XYs
		for i, r := range pop.ROIs {
			if !mask[i] || r.Reliability[p.StimulusIndex] < threshold {
				continue
			}
			pts = append(pts, plotter.XY{X: r.Depth, Y: r.Polarity[p.StimulusIndex]})
		}
		if len(pts) == 0 {
			continue
		}

		s, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("failed to build scatter for %s: %w", key, err)
		}
		s.GlyphStyle.Radius = vg.Points(2)
		if c, ok := groupColors[key.String()]; ok {
			s.GlyphStyle.Color = c
		}
		pl.Add(s)
		pl.Legend.Add(key.String(), s)
	}

	if err := pl.Save(5*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save polarity scatter: %w", err)
	}
	return nil
}
