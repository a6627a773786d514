package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/retina-data/ipl.report/internal/roi"
)

// NormalizeResponses reduces the raw response tensor at one stimulus size
// to a per-ROI z-scored trace. For each ROI independently it computes the
// population mean and standard deviation over the joint (time, repeat)
// sample set, averages across repeats per time point, and z-scores the
// repeat-mean trace against those joint moments. The result is an
// N x T matrix.
//
// A zero-variance ROI (flat response) would divide by zero; any NaN or
// infinite z value is replaced with 0. That guard is deliberate policy for
// noiseless or degenerate ROIs, not an error.
func NormalizeResponses(tensor *roi.ResponseTensor, stim int) ([][]float64, error) {
	if tensor == nil {
		return nil, fmt.Errorf("response tensor is nil")
	}
	dims := tensor.Dims()
	if stim < 0 || stim >= dims.S {
		return nil, fmt.Errorf("stimulus index %d out of range [0,%d)", stim, dims.S)
	}

	out := make([][]float64, dims.N)
	repeats := make([]float64, dims.R)
	for n := 0; n < dims.N; n++ {
		// Joint (time, repeat) population moments, two-pass.
		var sum float64
		for t := 0; t < dims.T; t++ {
			for r := 0; r < dims.R; r++ {
				sum += tensor.At(t, r, stim, n)
			}
		}
		count := float64(dims.T * dims.R)
		mean := sum / count

		var ss float64
		for t := 0; t < dims.T; t++ {
			for r := 0; r < dims.R; r++ {
				d := tensor.At(t, r, stim, n) - mean
				ss += d * d
			}
		}
		sigma := math.Sqrt(ss / count)

		trace := make([]float64, dims.T)
		for t := 0; t < dims.T; t++ {
			for r := 0; r < dims.R; r++ {
				repeats[r] = tensor.At(t, r, stim, n)
			}
			z := (stat.Mean(repeats, nil) - mean) / sigma
			if math.IsNaN(z) || math.IsInf(z, 0) {
				z = 0
			}
			trace[t] = z
		}
		out[n] = trace
	}
	return out, nil
}
