package analysis

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/retina-data/ipl.report/internal/roi"
)

// Params configures one pipeline run. All parameters are supplied by the
// caller; the pipeline holds no process-wide state.
type Params struct {
	StimulusIndex int       // stimulus-size index to analyse
	DepthBinEdges []float64 // ascending bin edge sequence
	LayerDivider  float64   // On/Off split, conventionally 0.5
	TopFraction   float64   // reliability selection fraction, conventionally 0.5
	MaxROIsPerBin int       // absolute cap per cell, 0 means DefaultMaxROIsPerBin
	Workers       int       // cell fan-out width, 0 means NumCPU
}

// Cell is the aggregate for one (group, depth bin) combination: the
// reliability-trimmed ROI subset, their z-scored traces and the reduced
// envelope.
type Cell struct {
	Key       GroupKey
	Bin       int
	BinCenter float64
	Indices   []int       // trimmed subset, descending reliability
	Traces    [][]float64 // z-scored traces matching Indices
	Env       Envelope
}

// Result is the full pipeline output: every cell in deterministic order
// (group-major, bin-minor) plus the harmonised global display range.
type Result struct {
	Cells       []Cell
	Bins        *DepthBins
	GlobalRange float64
}

// Run executes the depth-stratified aggregation pipeline: z-score all
// responses at the configured stimulus size, intersect the four base
// group masks with the depth bins, trim each cell's subset to its most
// reliable half (capped), reduce each subset to an envelope, and finally
// harmonise the display scale across all cells.
//
// Cells are independent, so they are fanned out over a bounded worker
// pool; the scale reduction runs only after every cell completes.
func Run(pop *roi.Population, p Params) (*Result, error) {
	if err := checkCategoricals(pop); err != nil {
		return nil, err
	}
	bins, err := NewDepthBins(p.DepthBinEdges)
	if err != nil {
		return nil, err
	}
	zscores, err := NormalizeResponses(pop.Responses, p.StimulusIndex)
	if err != nil {
		return nil, err
	}
	if p.TopFraction <= 0 || p.TopFraction > 1 {
		return nil, fmt.Errorf("top fraction must be in (0,1], got %v", p.TopFraction)
	}

	maxPerBin := p.MaxROIsPerBin
	if maxPerBin == 0 {
		maxPerBin = DefaultMaxROIsPerBin
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	classifier := NewClassifier(p.LayerDivider)
	reliability := pop.ReliabilityAt(p.StimulusIndex)
	binned := bins.Partition(pop.Depths())

	// Lay the cells out up front so worker completion order cannot
	// affect output order.
	res := &Result{Bins: bins}
	for _, key := range BaseKeys() {
		mask := classifier.Mask(pop, key)
		for b := 0; b < bins.Count(); b++ {
			var members []int
			for _, idx := range binned[b] {
				if mask[idx] {
					members = append(members, idx)
				}
			}
			res.Cells = append(res.Cells, Cell{
				Key:       key,
				Bin:       b,
				BinCenter: bins.Centers[b],
				Indices:   members,
			})
		}
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				reduceCell(&res.Cells[i], zscores, reliability, p.TopFraction, maxPerBin)
			}
		}()
	}
	for i := range res.Cells {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	envs := make([]Envelope, len(res.Cells))
	for i, c := range res.Cells {
		envs[i] = c.Env
	}
	res.GlobalRange = HarmonizeScale(envs)
	return res, nil
}

// reduceCell trims one cell's subset by reliability and reduces it to an
// envelope. Empty cells pass through as zeroed envelopes.
func reduceCell(c *Cell, zscores [][]float64, reliability []float64, frac float64, maxPerBin int) {
	ranked := RankByReliability(c.Indices, reliability)
	trimmed := Cap(TopFraction(ranked, frac), maxPerBin)

	c.Indices = trimmed
	c.Traces = make([][]float64, len(trimmed))
	for i, idx := range trimmed {
		c.Traces[i] = zscores[idx]
	}
	c.Env = ReduceEnvelope(c.Traces)
}
