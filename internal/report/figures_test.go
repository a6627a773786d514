package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retina-data/ipl.report/internal/analysis"
)

func TestRenderEnvelopeGrid(t *testing.T) {
	res := &analysis.Result{
		Cells: []analysis.Cell{
			{
				Key:       analysis.GroupKey{Genotype: 0, Condition: 0, Layer: analysis.LayerAny},
				BinCenter: 0.25,
				Env: analysis.Envelope{
					N:      2,
					Mean:   []float64{0, 1, 0, -1},
					SEM:    []float64{0.1, 0.1, 0.1, 0.1},
					Min:    -1.1,
					Max:    1.1,
					Range:  2.2,
					Center: 0,
				},
			},
			{
				Key: analysis.GroupKey{Genotype: 1, Condition: 0, Layer: analysis.LayerAny},
				Env: analysis.Envelope{}, // empty cells are skipped
			},
		},
		GlobalRange: 2.2,
	}

	var buf bytes.Buffer
	require.NoError(t, RenderEnvelopeGrid(&buf, res, 10))

	html := buf.String()
	assert.True(t, strings.Contains(html, "wt_ctrl"), "page should label the populated cell")
	assert.False(t, strings.Contains(html, "ko_ctrl"), "empty cell should be skipped")
}
