package analysis

import (
	"testing"

	"github.com/retina-data/ipl.report/internal/roi"
)

func testPopulation() *roi.Population {
	// Depths straddle the 0.5 divider; ROI 4 sits exactly on it.
	specs := []struct {
		depth     float64
		genotype  int
		condition int
	}{
		{0.1, 0, 0},
		{0.3, 0, 1},
		{0.7, 1, 0},
		{0.9, 1, 1},
		{0.5, 0, 0},
		{0.6, 0, 0},
	}
	pop := &roi.Population{}
	for _, s := range specs {
		pop.ROIs = append(pop.ROIs, roi.ROI{
			Depth:       s.depth,
			Genotype:    s.genotype,
			Condition:   s.condition,
			Reliability: []float64{0},
			Polarity:    []float64{0},
			Power:       []float64{0},
		})
	}
	return pop
}

func maskCount(mask []bool) int {
	n := 0
	for _, in := range mask {
		if in {
			n++
		}
	}
	return n
}

func TestClassifier_BaseGroupsPartition(t *testing.T) {
	pop := testPopulation()
	c := NewClassifier(0.5)

	counts := make([]int, pop.Len())
	total := 0
	for _, key := range BaseKeys() {
		mask := c.Mask(pop, key)
		for i, in := range mask {
			if in {
				counts[i]++
				total++
			}
		}
	}
	if total != pop.Len() {
		t.Errorf("base groups cover %d ROIs, want %d", total, pop.Len())
	}
	for i, n := range counts {
		if n != 1 {
			t.Errorf("roi %d in %d base groups, want exactly 1", i, n)
		}
	}
}

func TestClassifier_LayerSplitExcludesDivider(t *testing.T) {
	pop := testPopulation()
	c := NewClassifier(0.5)

	group := c.Mask(pop, GroupKey{Genotype: 0, Condition: 0, Layer: LayerAny})
	on := c.Mask(pop, GroupKey{Genotype: 0, Condition: 0, Layer: LayerOn})
	off := c.Mask(pop, GroupKey{Genotype: 0, Condition: 0, Layer: LayerOff})

	// ROI 4 (depth 0.5) is in the base group but in neither side.
	if !group[4] {
		t.Fatal("roi at divider should be in base group")
	}
	if on[4] || off[4] {
		t.Error("roi at divider must be excluded from both On and Off")
	}

	atDivider := 0
	for i := range group {
		if group[i] && pop.ROIs[i].Depth == 0.5 {
			atDivider++
		}
	}
	if maskCount(group) != maskCount(on)+maskCount(off)+atDivider {
		t.Errorf("group=%d on=%d off=%d atDivider=%d: sides plus divider must equal group",
			maskCount(group), maskCount(on), maskCount(off), atDivider)
	}
}

func TestClassifier_CrossMaskConsistency(t *testing.T) {
	pop := testPopulation()
	c := NewClassifier(0.5)

	wtCtrl := c.Mask(pop, GroupKey{Genotype: 0, Condition: 0, Layer: LayerAny})
	wtOn := c.Mask(pop, GroupKey{Genotype: 0, Condition: Any, Layer: LayerOn})
	wtOnCtrl := c.Mask(pop, GroupKey{Genotype: 0, Condition: 0, Layer: LayerOn})

	for i := range wtOnCtrl {
		if wtOnCtrl[i] != (wtCtrl[i] && wtOn[i]) {
			t.Errorf("roi %d: wtOnCtrl = %v, want wtCtrl AND wtOn = %v", i, wtOnCtrl[i], wtCtrl[i] && wtOn[i])
		}
	}
}

func TestAllKeys_Count(t *testing.T) {
	keys := AllKeys()
	if len(keys) != 16 {
		t.Fatalf("AllKeys returned %d keys, want 16", len(keys))
	}
	seen := make(map[GroupKey]bool)
	for _, k := range keys {
		if seen[k] {
			t.Errorf("duplicate key %v", k)
		}
		seen[k] = true
	}
}
