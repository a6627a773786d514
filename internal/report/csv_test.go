package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retina-data/ipl.report/internal/analysis"
)

func TestWriteEnvelopes(t *testing.T) {
	res := &analysis.Result{
		Cells: []analysis.Cell{
			{
				Key:       analysis.GroupKey{Genotype: 0, Condition: 0, Layer: analysis.LayerAny},
				Bin:       0,
				BinCenter: 0.25,
				Env:       analysis.Envelope{N: 3, Min: -1, Max: 2, Median: 0.5, Range: 3, Center: 0.5},
			},
			{
				Key:       analysis.GroupKey{Genotype: 1, Condition: 1, Layer: analysis.LayerAny},
				Bin:       1,
				BinCenter: 0.75,
				Env:       analysis.Envelope{}, // empty cell
			},
		},
		GlobalRange: 3,
	}

	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(&buf).WriteEnvelopes(res))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "group", rows[0][0])
	assert.Equal(t, "wt_ctrl", rows[1][0])
	assert.Equal(t, "3", rows[1][3])        // n_rois
	assert.Equal(t, "3.000000", rows[1][9]) // global_range repeated per row
	assert.Equal(t, "ko_apb", rows[2][0])
	assert.Equal(t, "0", rows[2][3])
}

func TestWriteProfiles(t *testing.T) {
	profiles := []analysis.DepthProfile{
		{
			Key: analysis.GroupKey{Genotype: 0, Condition: 0, Layer: analysis.LayerAny},
			Bins: []analysis.BinSummary{
				{Center: 0.25, N: 2, Mean: 0.7, SEM: 0.1},
				{Center: 0.75, N: 0},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(&buf).WriteProfiles("polarity", profiles))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"group", "bin_center", "n_rois", "polarity_mean", "polarity_sem"}, rows[0])
	assert.Equal(t, "0.700000", rows[1][3])
	assert.Equal(t, "0", rows[2][2])
}
