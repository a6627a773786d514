// Package analysis implements the depth-stratified group aggregation and
// envelope summarisation pipeline for an ROI population: group
// classification, depth binning, response z-scoring, reliability ranking,
// mean +/- SEM envelope reduction and global scale harmonisation.
package analysis

import (
	"fmt"

	"github.com/retina-data/ipl.report/internal/roi"
)

// Any matches both levels of a selector axis in a GroupKey.
const Any = -1

// LayerSide selects the IPL layer half relative to the divider.
type LayerSide int

const (
	LayerAny LayerSide = iota
	LayerOn            // depth strictly above the divider (inner half)
	LayerOff           // depth strictly below the divider (outer half)
)

func (l LayerSide) String() string {
	switch l {
	case LayerOn:
		return "on"
	case LayerOff:
		return "off"
	default:
		return "any"
	}
}

// GroupKey identifies one experimental group as a tagged combination of
// genotype, pharmacological condition and layer side. Genotype and
// Condition take the dataset encodings (0/1) or Any.
type GroupKey struct {
	Genotype  int
	Condition int
	Layer     LayerSide
}

func (k GroupKey) String() string {
	var g, c string
	switch k.Genotype {
	case roi.GenotypeWT:
		g = "wt"
	case roi.GenotypeKO:
		g = "ko"
	default:
		g = "all"
	}
	switch k.Condition {
	case roi.ConditionCtrl:
		c = "ctrl"
	case roi.ConditionAPB:
		c = "apb"
	default:
		c = "all"
	}
	s := g + "_" + c
	if k.Layer != LayerAny {
		s += "_" + k.Layer.String()
	}
	return s
}

// Classifier derives group membership masks from ROI metadata. The layer
// split uses strict inequalities against the divider: an ROI with depth
// exactly equal to the divider is in neither the On nor the Off side.
type Classifier struct {
	divider float64
}

// NewClassifier returns a classifier with the given layer divider
// (conventionally 0.5).
func NewClassifier(divider float64) *Classifier {
	return &Classifier{divider: divider}
}

// Mask returns the boolean membership mask for one group key, indexed by
// ROI. It is a pure function of the population metadata.
func (c *Classifier) Mask(p *roi.Population, key GroupKey) []bool {
	mask := make([]bool, p.Len())
	for i, r := range p.ROIs {
		if key.Genotype != Any && r.Genotype != key.Genotype {
			continue
		}
		if key.Condition != Any && r.Condition != key.Condition {
			continue
		}
		switch key.Layer {
		case LayerOn:
			if !(r.Depth > c.divider) {
				continue
			}
		case LayerOff:
			if !(r.Depth < c.divider) {
				continue
			}
		}
		mask[i] = true
	}
	return mask
}

// BaseKeys returns the four genotype x condition groups, layer-agnostic,
// in a fixed order (WT before KO, Ctrl before APB).
func BaseKeys() []GroupKey {
	return []GroupKey{
		{Genotype: roi.GenotypeWT, Condition: roi.ConditionCtrl, Layer: LayerAny},
		{Genotype: roi.GenotypeWT, Condition: roi.ConditionAPB, Layer: LayerAny},
		{Genotype: roi.GenotypeKO, Condition: roi.ConditionCtrl, Layer: LayerAny},
		{Genotype: roi.GenotypeKO, Condition: roi.ConditionAPB, Layer: LayerAny},
	}
}

// AllKeys returns the full derived set of 16 group keys: the four base
// genotype x condition groups, the four genotype x layer-side groups, and
// the eight-way genotype x condition x layer-side cross.
func AllKeys() []GroupKey {
	keys := BaseKeys()
	for _, g := range []int{roi.GenotypeWT, roi.GenotypeKO} {
		for _, l := range []LayerSide{LayerOn, LayerOff} {
			keys = append(keys, GroupKey{Genotype: g, Condition: Any, Layer: l})
		}
	}
	for _, base := range BaseKeys() {
		for _, l := range []LayerSide{LayerOn, LayerOff} {
			keys = append(keys, GroupKey{Genotype: base.Genotype, Condition: base.Condition, Layer: l})
		}
	}
	return keys
}

// Masks computes the full derived mask set of AllKeys in one pass.
func (c *Classifier) Masks(p *roi.Population) map[GroupKey][]bool {
	out := make(map[GroupKey][]bool, 16)
	for _, key := range AllKeys() {
		out[key] = c.Mask(p, key)
	}
	return out
}

// MaskIndices converts a membership mask to an ordered ROI index list.
func MaskIndices(mask []bool) []int {
	var idx []int
	for i, in := range mask {
		if in {
			idx = append(idx, i)
		}
	}
	return idx
}

// checkCategoricals is a guard used by the pipeline entry point; metadata
// outside {0,1} is a validation error upstream, never silently classified.
func checkCategoricals(p *roi.Population) error {
	for i, r := range p.ROIs {
		if r.Genotype != roi.GenotypeWT && r.Genotype != roi.GenotypeKO {
			return fmt.Errorf("roi %d: genotype must be 0 or 1, got %d", i, r.Genotype)
		}
		if r.Condition != roi.ConditionCtrl && r.Condition != roi.ConditionAPB {
			return fmt.Errorf("roi %d: condition must be 0 or 1, got %d", i, r.Condition)
		}
	}
	return nil
}
