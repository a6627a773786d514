package analysis

import (
	"math"
	"testing"
)

func TestNewDepthBins_RejectsBadEdges(t *testing.T) {
	cases := [][]float64{
		{},
		{0.4, 0.4},
		{0.6, 0.2},
		{0.2, 0.4, 0.3},
	}
	for _, edges := range cases {
		if _, err := NewDepthBins(edges); err == nil {
			t.Errorf("NewDepthBins(%v) should fail", edges)
		}
	}
}

func TestDepthBins_Assign(t *testing.T) {
	b, err := NewDepthBins([]float64{0.2, 0.4, 0.6, 0.8})
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		depth float64
		want  int
	}{
		{-0.5, 0}, // below first edge, open bin
		{0.0, 0},
		{0.2, 1}, // lower edge inclusive
		{0.39, 1},
		{0.4, 2},
		{0.79, 3},
		{0.8, 4}, // last edge opens the top bin
		{1.0, 4},
		{1.7, 4}, // above nominal domain, still captured
	}
	for _, c := range cases {
		if got := b.Assign(c.depth); got != c.want {
			t.Errorf("Assign(%v) = %d, want %d", c.depth, got, c.want)
		}
	}
}

func TestDepthBins_PartitionCoversPopulation(t *testing.T) {
	b, err := NewDepthBins([]float64{0.25, 0.5, 0.75})
	if err != nil {
		t.Fatal(err)
	}
	depths := []float64{-0.1, 0.1, 0.25, 0.3, 0.5, 0.74, 0.75, 0.9, 1.2}

	bins := b.Partition(depths)
	if len(bins) != b.Count() {
		t.Fatalf("Partition returned %d bins, want %d", len(bins), b.Count())
	}

	seen := make(map[int]int)
	total := 0
	for _, bin := range bins {
		for _, idx := range bin {
			seen[idx]++
			total++
		}
	}
	if total != len(depths) {
		t.Errorf("total assigned = %d, want %d", total, len(depths))
	}
	for idx, count := range seen {
		if count != 1 {
			t.Errorf("index %d assigned %d times", idx, count)
		}
	}
}

func TestDepthBins_Centers(t *testing.T) {
	b, err := NewDepthBins([]float64{0.2, 0.4, 0.6, 0.8})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.1, 0.3, 0.5, 0.7, 0.9}
	for i, c := range b.Centers {
		if math.Abs(c-want[i]) > 1e-12 {
			t.Errorf("Centers[%d] = %v, want %v", i, c, want[i])
		}
	}
}

func TestDepthBins_CentersSingleEdge(t *testing.T) {
	b, err := NewDepthBins([]float64{0.5})
	if err != nil {
		t.Fatal(err)
	}
	// Single edge has no edge gap; centres fall back to +/- a quarter of
	// the unit domain around the edge.
	if math.Abs(b.Centers[0]-0.25) > 1e-12 || math.Abs(b.Centers[1]-0.75) > 1e-12 {
		t.Errorf("Centers = %v, want [0.25 0.75]", b.Centers)
	}
}
