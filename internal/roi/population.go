// Package roi models a population of imaging regions of interest (ROIs)
// recorded from the retinal inner plexiform layer, together with the shared
// raw response tensor. The population is loaded once per analysis run and
// treated as immutable; all analysis components are pure views over it.
package roi

// Genotype and condition levels as encoded in the dataset.
const (
	GenotypeWT = 0
	GenotypeKO = 1

	ConditionCtrl = 0
	ConditionAPB  = 1
)

// ROI holds the per-ROI metadata and per-stimulus-size scalar metrics.
type ROI struct {
	// Depth is the normalized IPL position, 0 = outer/OFF boundary,
	// 1 = inner/ON boundary. Values outside [0,1] are tolerated.
	Depth float64

	Genotype  int // GenotypeWT or GenotypeKO
	Condition int // ConditionCtrl or ConditionAPB

	// Per-stimulus-size metrics, each of length Dims.S.
	Reliability []float64 // trial-to-trial consistency, correlation-like
	Polarity    []float64 // ON/OFF preference index in [-1,1]
	Power       []float64 // spectral amplitude at the stimulus fundamental
}

// Population is an ordered, immutable collection of ROIs plus the shared
// response tensor. The ROI slice index is the canonical ROI index used
// throughout the analysis packages.
type Population struct {
	ROIs      []ROI
	Responses *ResponseTensor
}

// Len returns the number of ROIs.
func (p *Population) Len() int { return len(p.ROIs) }

// StimulusSizes returns the stimulus-size cardinality of the dataset.
func (p *Population) StimulusSizes() int {
	if p.Responses == nil {
		return 0
	}
	return p.Responses.Dims().S
}

// Depths returns the depth of every ROI in index order.
func (p *Population) Depths() []float64 {
	out := make([]float64, len(p.ROIs))
	for i, r := range p.ROIs {
		out[i] = r.Depth
	}
	return out
}

// ReliabilityAt returns each ROI's reliability at one stimulus size,
// indexed by ROI.
func (p *Population) ReliabilityAt(stim int) []float64 {
	out := make([]float64, len(p.ROIs))
	for i, r := range p.ROIs {
		out[i] = r.Reliability[stim]
	}
	return out
}
