package roi

import "fmt"

// Dims describes the shape of a response tensor:
// time-points x repeats x stimulus-sizes x ROIs.
type Dims struct {
	T int // time points per trial
	R int // stimulus repeats
	S int // stimulus sizes
	N int // ROIs
}

// ResponseTensor is the shared 4-D raw response array for a population,
// stored as a single strided slice. Index order is (t, r, s, n) with n
// fastest, so all ROIs for one sample sit contiguously.
type ResponseTensor struct {
	dims Dims
	data []float64
}

// NewResponseTensor allocates a zeroed tensor with the given shape.
func NewResponseTensor(dims Dims) (*ResponseTensor, error) {
	if dims.T <= 0 || dims.R <= 0 || dims.S <= 0 || dims.N <= 0 {
		return nil, fmt.Errorf("response tensor dims must be positive, got %+v", dims)
	}
	return &ResponseTensor{
		dims: dims,
		data: make([]float64, dims.T*dims.R*dims.S*dims.N),
	}, nil
}

// Dims returns the tensor shape.
func (rt *ResponseTensor) Dims() Dims { return rt.dims }

func (rt *ResponseTensor) index(t, r, s, n int) int {
	return ((t*rt.dims.R+r)*rt.dims.S+s)*rt.dims.N + n
}

// At returns the sample at (time, repeat, stimulus size, ROI).
func (rt *ResponseTensor) At(t, r, s, n int) float64 {
	return rt.data[rt.index(t, r, s, n)]
}

// Set writes the sample at (time, repeat, stimulus size, ROI).
func (rt *ResponseTensor) Set(t, r, s, n int, v float64) {
	rt.data[rt.index(t, r, s, n)] = v
}

// TrialBlock copies the time x repeat block for one ROI at one stimulus
// size into a new time-major slice (index t*R + r). Used when persisting
// responses and when loading them back.
func (rt *ResponseTensor) TrialBlock(s, n int) []float64 {
	block := make([]float64, rt.dims.T*rt.dims.R)
	for t := 0; t < rt.dims.T; t++ {
		for r := 0; r < rt.dims.R; r++ {
			block[t*rt.dims.R+r] = rt.At(t, r, s, n)
		}
	}
	return block
}

// SetTrialBlock writes a time-major time x repeat block for one ROI at one
// stimulus size. The inverse of TrialBlock.
func (rt *ResponseTensor) SetTrialBlock(s, n int, block []float64) error {
	if len(block) != rt.dims.T*rt.dims.R {
		return fmt.Errorf("trial block has %d samples, want %d (T=%d R=%d)",
			len(block), rt.dims.T*rt.dims.R, rt.dims.T, rt.dims.R)
	}
	for t := 0; t < rt.dims.T; t++ {
		for r := 0; r < rt.dims.R; r++ {
			rt.Set(t, r, s, n, block[t*rt.dims.R+r])
		}
	}
	return nil
}
