// Command iplreport runs the depth-stratified envelope analysis over a
// persisted ROI dataset and writes the CSV tables and figures consumed by
// the publication layer.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/retina-data/ipl.report/internal/analysis"
	"github.com/retina-data/ipl.report/internal/config"
	"github.com/retina-data/ipl.report/internal/report"
	"github.com/retina-data/ipl.report/internal/roi"
	"github.com/retina-data/ipl.report/internal/roistore"
)

var (
	dbPath     = flag.String("db", "roi_data.db", "Path to the ROI sqlite store")
	configPath = flag.String("config", "", "Optional analysis config JSON")
	outDir     = flag.String("out", "report", "Output directory for CSV and figures")
	seedDemo   = flag.Bool("seed-demo", false, "Write a small synthetic dataset into the store and exit")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	store, err := roistore.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open store %s: %v", *dbPath, err)
	}
	defer store.Close()

	if *seedDemo {
		if err := store.SaveDataset(ctx, demoPopulation()); err != nil {
			log.Fatalf("failed to seed demo dataset: %v", err)
		}
		log.Printf("seeded demo dataset into %s", *dbPath)
		return
	}

	cfg := &config.AnalysisConfig{}
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	if err := run(ctx, store, cfg); err != nil {
		log.Fatalf("analysis failed: %v", err)
	}
}

func run(ctx context.Context, store *roistore.Store, cfg *config.AnalysisConfig) error {
	pop, err := store.LoadDataset(ctx)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	if err := roi.Validate(pop, cfg.GetLayerDivider()); err != nil {
		return fmt.Errorf("dataset validation: %w", err)
	}
	log.Printf("loaded %d ROIs, %d stimulus sizes", pop.Len(), pop.StimulusSizes())

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	runID, err := store.RecordRun(ctx, string(cfgJSON))
	if err != nil {
		return err
	}

	res, err := analysis.Run(pop, analysis.Params{
		StimulusIndex: cfg.GetStimulusIndex(),
		DepthBinEdges: cfg.GetDepthBinEdges(),
		LayerDivider:  cfg.GetLayerDivider(),
		TopFraction:   cfg.GetTopFraction(),
		MaxROIsPerBin: cfg.GetMaxROIsPerBin(),
		Workers:       cfg.GetWorkers(),
	})
	if err != nil {
		return err
	}
	log.Printf("run %s: %d cells, global range %.4f", runID, len(res.Cells), res.GlobalRange)

	summary := analysis.SummaryParams{
		StimulusIndex: cfg.GetStimulusIndex(),
		DepthBinEdges: cfg.GetDepthBinEdges(),
		LayerDivider:  cfg.GetLayerDivider(),
		MinReliability: map[int]float64{
			roi.GenotypeWT: cfg.GetReliabilityThresholdWT(),
			roi.GenotypeKO: cfg.GetReliabilityThresholdKO(),
		},
	}
	polarity, err := analysis.PolarityByDepth(pop, summary)
	if err != nil {
		return err
	}
	power, err := analysis.PowerByDepth(pop, summary)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := writeCSV(filepath.Join(*outDir, "envelopes.csv"), func(w *report.CSVWriter) error {
		return w.WriteEnvelopes(res)
	}); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(*outDir, "polarity_by_depth.csv"), func(w *report.CSVWriter) error {
		return w.WriteProfiles("polarity", polarity)
	}); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(*outDir, "power_by_depth.csv"), func(w *report.CSVWriter) error {
		return w.WriteProfiles("power", power)
	}); err != nil {
		return err
	}

	htmlPath := filepath.Join(*outDir, "envelopes.html")
	f, err := os.Create(htmlPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", htmlPath, err)
	}
	if err := report.RenderEnvelopeGrid(f, res, cfg.GetFrameRateHz()); err != nil {
		f.Close()
		return fmt.Errorf("failed to render envelope grid: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := report.SavePolarityScatter(filepath.Join(*outDir, "polarity_depth.png"), pop, summary); err != nil {
		return err
	}

	return store.FinishRun(ctx, runID, res.GlobalRange)
}

func writeCSV(path string, write func(*report.CSVWriter) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := write(report.NewCSVWriter(f)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// demoPopulation builds a small deterministic synthetic dataset: 60 ROIs
// across both genotypes and conditions, sinusoidal responses whose
// amplitude tracks depth, noisy repeats, and metrics derived from the
// generating parameters. Useful for smoke-testing the full report path
// without real imaging data.
func demoPopulation() *roi.Population {
	const (
		nROIs   = 60
		timePts = 64
		repeats = 5
		stims   = 3
	)
	rng := rand.New(rand.NewSource(42))

	tensor, err := roi.NewResponseTensor(roi.Dims{T: timePts, R: repeats, S: stims, N: nROIs})
	if err != nil {
		panic(err)
	}

	pop := &roi.Population{Responses: tensor}
	for n := 0; n < nROIs; n++ {
		depth := float64(n) / float64(nROIs-1)
		r := roi.ROI{
			Depth:       depth,
			Genotype:    (n / 15) % 2,
			Condition:   (n / 30) % 2,
			Reliability: make([]float64, stims),
			Polarity:    make([]float64, stims),
			Power:       make([]float64, stims),
		}

		// ON ROIs (inner half) respond in counterphase to OFF ROIs.
		phase := 0.0
		if depth > 0.5 {
			phase = math.Pi
		}
		for s := 0; s < stims; s++ {
			amp := (0.5 + depth) * float64(s+1)
			noise := 0.2 + 0.6*rng.Float64()
			for t := 0; t < timePts; t++ {
				base := amp * math.Sin(2*math.Pi*float64(t)/float64(timePts)+phase)
				for rep := 0; rep < repeats; rep++ {
					tensor.Set(t, rep, s, n, base+noise*rng.NormFloat64())
				}
			}
			r.Reliability[s] = math.Max(0, 1-noise)
			r.Polarity[s] = math.Cos(phase) * (0.4 + 0.6*rng.Float64())
			r.Power[s] = amp
		}
		pop.ROIs = append(pop.ROIs, r)
	}
	return pop
}
