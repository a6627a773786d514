package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/retina-data/ipl.report/internal/roi"
)

// BinSummary is one depth bin's aggregate of a scalar ROI metric.
type BinSummary struct {
	Center float64
	N      int
	Mean   float64
	SEM    float64
}

// DepthProfile is a scalar metric summarised per depth bin for one base
// experimental group.
type DepthProfile struct {
	Key  GroupKey
	Bins []BinSummary
}

// SummaryParams configures the polarity and power depth profiles. The
// per-genotype reliability thresholds gate which ROIs contribute; they
// apply only here, never in the envelope pipeline.
type SummaryParams struct {
	StimulusIndex  int
	DepthBinEdges  []float64
	LayerDivider   float64
	MinReliability map[int]float64 // keyed by genotype
}

// PolarityByDepth summarises the polarity index per depth bin for each of
// the four base groups, restricted to ROIs whose reliability at the
// analysed stimulus size meets the genotype's threshold.
func PolarityByDepth(pop *roi.Population, p SummaryParams) ([]DepthProfile, error) {
	return metricByDepth(pop, p, func(r *roi.ROI, stim int) float64 {
		return r.Polarity[stim]
	})
}

// PowerByDepth summarises the fundamental spectral power per depth bin for
// each base group, gated by the same reliability thresholds.
func PowerByDepth(pop *roi.Population, p SummaryParams) ([]DepthProfile, error) {
	return metricByDepth(pop, p, func(r *roi.ROI, stim int) float64 {
		return r.Power[stim]
	})
}

func metricByDepth(pop *roi.Population, p SummaryParams, metric func(*roi.ROI, int) float64) ([]DepthProfile, error) {
	if err := checkCategoricals(pop); err != nil {
		return nil, err
	}
	if s := p.StimulusIndex; s < 0 || s >= pop.StimulusSizes() {
		return nil, fmt.Errorf("stimulus index %d out of range [0,%d)", s, pop.StimulusSizes())
	}
	bins, err := NewDepthBins(p.DepthBinEdges)
	if err != nil {
		return nil, err
	}

	classifier := NewClassifier(p.LayerDivider)
	binned := bins.Partition(pop.Depths())

	profiles := make([]DepthProfile, 0, len(BaseKeys()))
	for _, key := range BaseKeys() {
		mask := classifier.Mask(pop, key)
		threshold := p.MinReliability[key.Genotype]

		prof := DepthProfile{Key: key, Bins: make([]BinSummary, bins.Count())}
		for b := 0; b < bins.Count(); b++ {
			var vals []float64
			for _, idx := range binned[b] {
				if !mask[idx] {
					continue
				}
				r := &pop.ROIs[idx]
				if r.Reliability[p.StimulusIndex] < threshold {
					continue
				}
				v := metric(r, p.StimulusIndex)
				if math.IsNaN(v) {
					continue
				}
				vals = append(vals, v)
			}

			s := BinSummary{Center: bins.Centers[b], N: len(vals)}
			if len(vals) > 0 {
				s.Mean = stat.Mean(vals, nil)
				if len(vals) > 1 {
					s.SEM = stat.StdDev(vals, nil) / math.Sqrt(float64(len(vals)))
				}
			}
			prof.Bins[b] = s
		}
		profiles = append(profiles, prof)
	}
	return profiles, nil
}
