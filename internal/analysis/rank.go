package analysis

import (
	"math"
	"sort"
)

// DefaultMaxROIsPerBin caps the number of ROIs contributing to one
// depth-bin envelope.
const DefaultMaxROIsPerBin = 500

// RankByReliability orders the given ROI indices by descending reliability
// score. Ties keep their original relative order (stable sort), which
// matters for reproducing selections downstream. The input slice is not
// modified; scores is indexed by ROI index.
func RankByReliability(indices []int, scores []float64) []int {
	ranked := make([]int, len(indices))
	copy(ranked, indices)
	sort.SliceStable(ranked, func(a, b int) bool {
		return scores[ranked[a]] > scores[ranked[b]]
	})
	return ranked
}

// TopFraction returns the first round(n*frac) entries of an already-ranked
// index list, rounding half away from zero. frac of 0.5 selects the top
// ~50% most reliable ROIs. An empty input yields an empty output.
func TopFraction(ranked []int, frac float64) []int {
	count := int(math.Round(float64(len(ranked)) * frac))
	if count > len(ranked) {
		count = len(ranked)
	}
	return ranked[:count]
}

// Cap truncates an index list to at most limit entries without re-sorting;
// the caller's ordering is preserved. A non-positive limit means no cap.
func Cap(indices []int, limit int) []int {
	if limit <= 0 || len(indices) <= limit {
		return indices
	}
	return indices[:limit]
}
