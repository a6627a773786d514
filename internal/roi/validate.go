package roi

import (
	"fmt"
	"log"
	"math"
)

// Validate runs the structural checks required before any analysis touches
// the population. Structural problems (mismatched array lengths, bad
// categorical values, missing tensor) are fatal and reported with the field
// and the expected vs actual shape. Range problems (depth outside [0,1],
// NaN metadata, depth exactly on the layer divider) are warnings only:
// they are logged and processing continues.
func Validate(p *Population, divider float64) error {
	if p == nil {
		return fmt.Errorf("population is nil")
	}
	if p.Responses == nil {
		return fmt.Errorf("population has no response tensor")
	}

	dims := p.Responses.Dims()
	if dims.N != len(p.ROIs) {
		return fmt.Errorf("response tensor ROI axis: expected length %d, got %d", len(p.ROIs), dims.N)
	}

	for i, r := range p.ROIs {
		if r.Genotype != GenotypeWT && r.Genotype != GenotypeKO {
			return fmt.Errorf("roi %d: genotype must be 0 or 1, got %d", i, r.Genotype)
		}
		if r.Condition != ConditionCtrl && r.Condition != ConditionAPB {
			return fmt.Errorf("roi %d: condition must be 0 or 1, got %d", i, r.Condition)
		}
		if len(r.Reliability) != dims.S {
			return fmt.Errorf("roi %d: reliability: expected %d stimulus sizes, got %d", i, dims.S, len(r.Reliability))
		}
		if len(r.Polarity) != dims.S {
			return fmt.Errorf("roi %d: polarity: expected %d stimulus sizes, got %d", i, dims.S, len(r.Polarity))
		}
		if len(r.Power) != dims.S {
			return fmt.Errorf("roi %d: power: expected %d stimulus sizes, got %d", i, dims.S, len(r.Power))
		}
	}

	warnRanges(p, divider)
	return nil
}

// warnRanges logs non-fatal data-quality observations.
func warnRanges(p *Population, divider float64) {
	outside := 0
	onDivider := 0
	nanMeta := 0
	for i, r := range p.ROIs {
		if math.IsNaN(r.Depth) {
			nanMeta++
			continue
		}
		if r.Depth < 0 || r.Depth > 1 {
			outside++
			log.Printf("warning: roi %d depth %.4f outside [0,1]", i, r.Depth)
		}
		if r.Depth == divider {
			onDivider++
		}
		for _, v := range r.Reliability {
			if math.IsNaN(v) {
				nanMeta++
				break
			}
		}
	}
	if onDivider > 0 {
		// ROIs exactly on the divider belong to neither layer side.
		log.Printf("warning: %d ROI(s) at depth == layer divider %.3f; excluded from On and Off masks", onDivider, divider)
	}
	if nanMeta > 0 {
		log.Printf("warning: NaN metadata present on %d ROI(s)", nanMeta)
	}
}
