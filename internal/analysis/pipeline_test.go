package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retina-data/ipl.report/internal/roi"
)

// referencePopulation builds the four-ROI reference scenario: depths
// straddle a single 0.5 edge, all ROIs in the Ctrl condition, reliability
// chosen so the top-half selection is unambiguous.
func referencePopulation(t *testing.T) *roi.Population {
	t.Helper()
	tensor, err := roi.NewResponseTensor(roi.Dims{T: 6, R: 2, S: 1, N: 4})
	require.NoError(t, err)

	// Give each ROI a distinct non-flat response.
	for n := 0; n < 4; n++ {
		for tt := 0; tt < 6; tt++ {
			for r := 0; r < 2; r++ {
				tensor.Set(tt, r, 0, n, float64(n+1)*math.Sin(float64(tt)))
			}
		}
	}

	depths := []float64{0.1, 0.45, 0.55, 0.9}
	genotypes := []int{0, 0, 1, 1}
	reliability := []float64{0.9, 0.1, 0.8, 0.2}

	pop := &roi.Population{Responses: tensor}
	for i := 0; i < 4; i++ {
		pop.ROIs = append(pop.ROIs, roi.ROI{
			Depth:       depths[i],
			Genotype:    genotypes[i],
			Condition:   0,
			Reliability: []float64{reliability[i]},
			Polarity:    []float64{0.5},
			Power:       []float64{1},
		})
	}
	return pop
}

func TestRun_ReferenceScenario(t *testing.T) {
	pop := referencePopulation(t)

	res, err := Run(pop, Params{
		StimulusIndex: 0,
		DepthBinEdges: []float64{0.5},
		LayerDivider:  0.5,
		TopFraction:   0.5,
		Workers:       2,
	})
	require.NoError(t, err)

	// 4 base groups x 2 bins.
	require.Len(t, res.Cells, 8)

	cell := func(key GroupKey, bin int) *Cell {
		for i := range res.Cells {
			if res.Cells[i].Key == key && res.Cells[i].Bin == bin {
				return &res.Cells[i]
			}
		}
		t.Fatalf("no cell for %v bin %d", key, bin)
		return nil
	}

	wtCtrl := GroupKey{Genotype: 0, Condition: 0, Layer: LayerAny}
	koCtrl := GroupKey{Genotype: 1, Condition: 0, Layer: LayerAny}

	t.Run("bin membership and top-half trim", func(t *testing.T) {
		// wtCtrl bin 0 holds ROIs {0,1}; round(2/2)=1 keeps only ROI 0
		// (reliability 0.9 beats 0.1).
		assert.Equal(t, []int{0}, cell(wtCtrl, 0).Indices)
		// koCtrl bin 1 holds ROIs {2,3}; ROI 2 (0.8) wins.
		assert.Equal(t, []int{2}, cell(koCtrl, 1).Indices)
		// Cross cells are empty.
		assert.Empty(t, cell(wtCtrl, 1).Indices)
		assert.Empty(t, cell(koCtrl, 0).Indices)
	})

	t.Run("empty cells carry zeroed envelopes", func(t *testing.T) {
		empty := cell(wtCtrl, 1).Env
		assert.Zero(t, empty.Range)
		assert.Zero(t, empty.Center)
		assert.Zero(t, empty.N)
	})

	t.Run("global range is the exact cell maximum", func(t *testing.T) {
		var maxRange float64
		for _, c := range res.Cells {
			if c.Env.Range > maxRange {
				maxRange = c.Env.Range
			}
			assert.LessOrEqual(t, c.Env.Range, res.GlobalRange)
		}
		assert.Equal(t, maxRange, res.GlobalRange)
	})

	t.Run("deterministic across worker counts", func(t *testing.T) {
		serial, err := Run(pop, Params{
			StimulusIndex: 0,
			DepthBinEdges: []float64{0.5},
			LayerDivider:  0.5,
			TopFraction:   0.5,
			Workers:       1,
		})
		require.NoError(t, err)
		require.Len(t, serial.Cells, len(res.Cells))
		for i := range serial.Cells {
			assert.Equal(t, res.Cells[i].Key, serial.Cells[i].Key)
			assert.Equal(t, res.Cells[i].Indices, serial.Cells[i].Indices)
			assert.Equal(t, res.Cells[i].Env, serial.Cells[i].Env)
		}
		assert.Equal(t, res.GlobalRange, serial.GlobalRange)
	})
}

func TestRun_ParameterErrors(t *testing.T) {
	pop := referencePopulation(t)

	t.Run("bad edges", func(t *testing.T) {
		_, err := Run(pop, Params{StimulusIndex: 0, DepthBinEdges: nil, TopFraction: 0.5})
		assert.Error(t, err)
	})
	t.Run("stimulus out of range", func(t *testing.T) {
		_, err := Run(pop, Params{StimulusIndex: 3, DepthBinEdges: []float64{0.5}, TopFraction: 0.5})
		assert.Error(t, err)
	})
	t.Run("bad top fraction", func(t *testing.T) {
		_, err := Run(pop, Params{StimulusIndex: 0, DepthBinEdges: []float64{0.5}, TopFraction: 1.5})
		assert.Error(t, err)
	})
	t.Run("bad categorical", func(t *testing.T) {
		bad := referencePopulation(t)
		bad.ROIs[2].Genotype = 7
		_, err := Run(bad, Params{StimulusIndex: 0, DepthBinEdges: []float64{0.5}, TopFraction: 0.5})
		assert.Error(t, err)
	})
}

func TestRun_CapLimitsCellSize(t *testing.T) {
	// 20 WT/Ctrl ROIs in one bin; top half is 10, cap of 3 wins.
	tensor, err := roi.NewResponseTensor(roi.Dims{T: 4, R: 2, S: 1, N: 20})
	require.NoError(t, err)
	pop := &roi.Population{Responses: tensor}
	for i := 0; i < 20; i++ {
		for tt := 0; tt < 4; tt++ {
			tensor.Set(tt, 0, 0, i, float64(tt))
			tensor.Set(tt, 1, 0, i, float64(tt))
		}
		pop.ROIs = append(pop.ROIs, roi.ROI{
			Depth:       0.25,
			Reliability: []float64{float64(i) / 20},
			Polarity:    []float64{0},
			Power:       []float64{0},
		})
	}

	res, err := Run(pop, Params{
		StimulusIndex: 0,
		DepthBinEdges: []float64{0.5},
		LayerDivider:  0.5,
		TopFraction:   0.5,
		MaxROIsPerBin: 3,
		Workers:       1,
	})
	require.NoError(t, err)

	for _, c := range res.Cells {
		assert.LessOrEqual(t, len(c.Indices), 3)
	}
	// The capped cell keeps the three highest-reliability ROIs in rank order.
	first := res.Cells[0]
	require.Equal(t, GroupKey{Genotype: 0, Condition: 0, Layer: LayerAny}, first.Key)
	assert.Equal(t, []int{19, 18, 17}, first.Indices)
}
