// Package config holds the externally supplied run configuration for the
// analysis pipeline. Fields omitted from the JSON file fall back to the
// documented defaults via the Get* accessors, so partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// AnalysisConfig is the root configuration for one analysis run. All
// fields are optional pointers; nil means "use the default".
type AnalysisConfig struct {
	// Imaging frame rate in Hz, used only for time-axis labelling.
	FrameRateHz *float64 `json:"frame_rate_hz,omitempty"`

	// Stimulus-size index to analyse.
	StimulusIndex *int `json:"stimulus_index,omitempty"`

	// Ascending depth-bin edge sequence in IPL fraction units.
	DepthBinEdges *[]float64 `json:"depth_bin_edges,omitempty"`

	// On/Off layer divider in IPL fraction units.
	LayerDivider *float64 `json:"layer_divider,omitempty"`

	// Absolute cap on ROIs contributing to one depth-bin envelope.
	MaxROIsPerBin *int `json:"max_rois_per_bin,omitempty"`

	// Fraction of each cell kept after reliability ranking.
	TopFraction *float64 `json:"top_fraction,omitempty"`

	// Per-genotype reliability gates for the polarity/power depth
	// profiles. Not used by the envelope pipeline.
	ReliabilityThresholdWT *float64 `json:"reliability_threshold_wt,omitempty"`
	ReliabilityThresholdKO *float64 `json:"reliability_threshold_ko,omitempty"`

	// Worker count for the (group, bin) cell fan-out.
	Workers *int `json:"workers,omitempty"`
}

// Load reads an AnalysisConfig from a JSON file. The path must have a
// .json extension and stay under the max file size.
func Load(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &AnalysisConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that any supplied values are usable.
func (c *AnalysisConfig) Validate() error {
	if c.FrameRateHz != nil && *c.FrameRateHz <= 0 {
		return fmt.Errorf("frame_rate_hz must be positive, got %f", *c.FrameRateHz)
	}
	if c.StimulusIndex != nil && *c.StimulusIndex < 0 {
		return fmt.Errorf("stimulus_index must be non-negative, got %d", *c.StimulusIndex)
	}
	if c.DepthBinEdges != nil {
		edges := *c.DepthBinEdges
		if len(edges) == 0 {
			return fmt.Errorf("depth_bin_edges must be non-empty when set")
		}
		for i := 1; i < len(edges); i++ {
			if edges[i] <= edges[i-1] {
				return fmt.Errorf("depth_bin_edges must be strictly ascending, got %v", edges)
			}
		}
	}
	if c.LayerDivider != nil && (*c.LayerDivider < 0 || *c.LayerDivider > 1) {
		return fmt.Errorf("layer_divider must be between 0 and 1, got %f", *c.LayerDivider)
	}
	if c.MaxROIsPerBin != nil && *c.MaxROIsPerBin < 1 {
		return fmt.Errorf("max_rois_per_bin must be at least 1, got %d", *c.MaxROIsPerBin)
	}
	if c.TopFraction != nil && (*c.TopFraction <= 0 || *c.TopFraction > 1) {
		return fmt.Errorf("top_fraction must be in (0,1], got %f", *c.TopFraction)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// GetFrameRateHz returns the frame rate or the default.
func (c *AnalysisConfig) GetFrameRateHz() float64 {
	if c.FrameRateHz == nil {
		return 15.625 // resonant-scan line rate used for the reference dataset
	}
	return *c.FrameRateHz
}

// GetStimulusIndex returns the stimulus-size index or the default.
func (c *AnalysisConfig) GetStimulusIndex() int {
	if c.StimulusIndex == nil {
		return 0
	}
	return *c.StimulusIndex
}

// GetDepthBinEdges returns the bin edges or the default five-bin layout.
func (c *AnalysisConfig) GetDepthBinEdges() []float64 {
	if c.DepthBinEdges == nil {
		return []float64{0.2, 0.4, 0.6, 0.8}
	}
	return *c.DepthBinEdges
}

// GetLayerDivider returns the On/Off divider or the default.
func (c *AnalysisConfig) GetLayerDivider() float64 {
	if c.LayerDivider == nil {
		return 0.5
	}
	return *c.LayerDivider
}

// GetMaxROIsPerBin returns the per-bin cap or the default.
func (c *AnalysisConfig) GetMaxROIsPerBin() int {
	if c.MaxROIsPerBin == nil {
		return 500
	}
	return *c.MaxROIsPerBin
}

// GetTopFraction returns the reliability selection fraction or the default.
func (c *AnalysisConfig) GetTopFraction() float64 {
	if c.TopFraction == nil {
		return 0.5
	}
	return *c.TopFraction
}

// GetReliabilityThresholdWT returns the WT reliability gate or the default.
func (c *AnalysisConfig) GetReliabilityThresholdWT() float64 {
	if c.ReliabilityThresholdWT == nil {
		return 0.3
	}
	return *c.ReliabilityThresholdWT
}

// GetReliabilityThresholdKO returns the KO reliability gate or the default.
func (c *AnalysisConfig) GetReliabilityThresholdKO() float64 {
	if c.ReliabilityThresholdKO == nil {
		return 0.3
	}
	return *c.ReliabilityThresholdKO
}

// GetWorkers returns the fan-out width, defaulting to the CPU count.
func (c *AnalysisConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.NumCPU()
	}
	return *c.Workers
}
