package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Envelope summarises a set of z-scored traces as a mean +/- standard
// error band plus the scalar bounds used for shared-scale rendering.
type Envelope struct {
	N int // traces reduced

	Mean []float64 // across-ROI mean per time point
	SEM  []float64 // across-ROI standard error per time point

	Min    float64 // min over time of (mean - sem)
	Max    float64 // max over time of (mean + sem)
	Median float64 // median of the mean trace
	Range  float64 // Max - Min
	Center float64 // (Max + Min) / 2
}

// ReduceEnvelope collapses a subset-of-ROIs x time matrix of traces into
// an Envelope. An empty subset returns a zeroed envelope with no trace
// data: depth bins routinely hold zero ROIs for some experimental group,
// so this is expected state, not an error. For a single trace the SEM is
// zero everywhere and the mean equals the trace.
func ReduceEnvelope(traces [][]float64) Envelope {
	if len(traces) == 0 {
		return Envelope{}
	}

	n := len(traces)
	T := len(traces[0])
	env := Envelope{
		N:    n,
		Mean: make([]float64, T),
		SEM:  make([]float64, T),
	}

	col := make([]float64, n)
	env.Min = math.Inf(1)
	env.Max = math.Inf(-1)
	for t := 0; t < T; t++ {
		for i, tr := range traces {
			col[i] = tr[t]
		}
		m := stat.Mean(col, nil)
		sem := 0.0
		if n > 1 {
			sem = stat.StdDev(col, nil) / math.Sqrt(float64(n))
		}
		env.Mean[t] = m
		env.SEM[t] = sem
		if lower := m - sem; lower < env.Min {
			env.Min = lower
		}
		if upper := m + sem; upper > env.Max {
			env.Max = upper
		}
	}

	env.Median = median(env.Mean)
	env.Range = env.Max - env.Min
	env.Center = (env.Max + env.Min) / 2
	return env
}

// median averages the two middle elements at even length. gonum's
// empirical quantile does not interpolate, so this stays hand-rolled.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// HarmonizeScale returns the exact maximum envelope range across all
// cells. Presentation code sizes every subplot's y-axis to this single
// global span, each centred on its own envelope centre. No smoothing or
// outlier trimming is applied.
func HarmonizeScale(envelopes []Envelope) float64 {
	var global float64
	for _, e := range envelopes {
		if e.Range > global {
			global = e.Range
		}
	}
	return global
}
