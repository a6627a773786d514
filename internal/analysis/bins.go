package analysis

import "fmt"

// DepthBins partitions depths into len(Edges)+1 bins. The outer bins are
// open-ended: bin 0 catches depth < Edges[0] and the last bin catches
// depth >= Edges[len-1], so every ROI lands in exactly one bin even when
// its depth falls outside the nominal [0,1] range. Interior bin i covers
// [Edges[i-1], Edges[i]).
type DepthBins struct {
	Edges   []float64
	Centers []float64
}

// NewDepthBins validates the edge sequence and precomputes the bin centre
// labels. Edges must be non-empty and strictly ascending.
func NewDepthBins(edges []float64) (*DepthBins, error) {
	if len(edges) == 0 {
		return nil, fmt.Errorf("depth bin edges must be non-empty")
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			return nil, fmt.Errorf("depth bin edges must be strictly ascending, got %v at index %d", edges, i)
		}
	}

	b := &DepthBins{Edges: edges}
	b.Centers = centers(edges)
	return b, nil
}

// centers computes the display centre label per bin: interior bins use the
// edge midpoint; the outer bins extrapolate by half the adjacent edge gap.
// These labels are a display convenience only and play no part in the
// partition rule. A single-edge sequence has no edge gap, so the outer
// centres fall back to half the unit depth domain on each side.
func centers(edges []float64) []float64 {
	n := len(edges)
	c := make([]float64, n+1)

	firstGap, lastGap := 0.5, 0.5
	if n >= 2 {
		firstGap = edges[1] - edges[0]
		lastGap = edges[n-1] - edges[n-2]
	}
	c[0] = edges[0] - firstGap/2
	c[n] = edges[n-1] + lastGap/2
	for i := 1; i < n; i++ {
		c[i] = (edges[i-1] + edges[i]) / 2
	}
	return c
}

// Count returns the number of bins, len(Edges)+1.
func (b *DepthBins) Count() int { return len(b.Edges) + 1 }

// Assign returns the bin index for one depth value.
func (b *DepthBins) Assign(depth float64) int {
	for i, e := range b.Edges {
		if depth < e {
			return i
		}
	}
	return len(b.Edges)
}

// Partition assigns every depth to its bin and returns the per-bin ROI
// index lists, preserving original index order within each bin. The lists
// are disjoint and cover all indices.
func (b *DepthBins) Partition(depths []float64) [][]int {
	bins := make([][]int, b.Count())
	for i, d := range depths {
		bin := b.Assign(d)
		bins[bin] = append(bins[bin], i)
	}
	return bins
}
