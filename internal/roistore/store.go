// Package roistore persists ROI populations and analysis-run bookkeeping
// in a sqlite database. The dataset is a write-once snapshot: the five
// parallel arrays of the population model (metadata, response tensor,
// reliability, polarity, power) stored across three tables, with response
// trial blocks encoded as little-endian float64 blobs.
package roistore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/retina-data/ipl.report/internal/roi"
)

type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the store at path. Use ":memory:" for an
// ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS rois (
			roi_index         INTEGER PRIMARY KEY,
			depth             DOUBLE NOT NULL,
			genotype          INTEGER NOT NULL,
			condition         INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS roi_metrics (
			roi_index         INTEGER NOT NULL,
			stim_index        INTEGER NOT NULL,
			reliability       DOUBLE NOT NULL,
			polarity          DOUBLE NOT NULL,
			power             DOUBLE NOT NULL,
			PRIMARY KEY (roi_index, stim_index),
			FOREIGN KEY (roi_index) REFERENCES rois(roi_index)
		);
		CREATE TABLE IF NOT EXISTS responses (
			roi_index         INTEGER NOT NULL,
			stim_index        INTEGER NOT NULL,
			time_points       INTEGER NOT NULL,
			repeats           INTEGER NOT NULL,
			samples           BLOB NOT NULL,
			PRIMARY KEY (roi_index, stim_index),
			FOREIGN KEY (roi_index) REFERENCES rois(roi_index)
		);
		CREATE TABLE IF NOT EXISTS analysis_runs (
			run_id            TEXT PRIMARY KEY,
			config_json       TEXT,
			global_range      DOUBLE,
			started_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			finished_at       TIMESTAMP
		);
	`)
	if err != nil {
		return nil, err
	}
	return &Store{db}, nil
}

// encodeBlock packs a time-major float64 block into a little-endian blob.
func encodeBlock(block []float64) []byte {
	buf := make([]byte, 8*len(block))
	for i, v := range block {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeBlock is the inverse of encodeBlock.
func decodeBlock(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("response blob length %d is not a multiple of 8", len(buf))
	}
	block := make([]float64, len(buf)/8)
	for i := range block {
		block[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return block, nil
}

// SaveDataset writes a complete population snapshot in one transaction.
// Existing dataset rows are replaced.
func (s *Store) SaveDataset(ctx context.Context, pop *roi.Population) error {
	if pop.Responses == nil {
		return fmt.Errorf("population has no response tensor")
	}
	dims := pop.Responses.Dims()
	if dims.N != len(pop.ROIs) {
		return fmt.Errorf("response tensor ROI axis: expected length %d, got %d", len(pop.ROIs), dims.N)
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"responses", "roi_metrics", "rois"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i, r := range pop.ROIs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rois (roi_index, depth, genotype, condition) VALUES (?, ?, ?, ?)`,
			i, r.Depth, r.Genotype, r.Condition); err != nil {
			return fmt.Errorf("failed to insert roi %d: %w", i, err)
		}
		for stim := 0; stim < dims.S; stim++ {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO roi_metrics (roi_index, stim_index, reliability, polarity, power)
				 VALUES (?, ?, ?, ?, ?)`,
				i, stim, r.Reliability[stim], r.Polarity[stim], r.Power[stim]); err != nil {
				return fmt.Errorf("failed to insert metrics for roi %d stim %d: %w", i, stim, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO responses (roi_index, stim_index, time_points, repeats, samples)
				 VALUES (?, ?, ?, ?, ?)`,
				i, stim, dims.T, dims.R, encodeBlock(pop.Responses.TrialBlock(stim, i))); err != nil {
				return fmt.Errorf("failed to insert responses for roi %d stim %d: %w", i, stim, err)
			}
		}
	}

	return tx.Commit()
}

// LoadDataset reassembles the persisted population. Dimension consistency
// across rows is checked and reported as a structural error.
func (s *Store) LoadDataset(ctx context.Context) (*roi.Population, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT roi_index, depth, genotype, condition FROM rois ORDER BY roi_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pop := &roi.Population{}
	for rows.Next() {
		var idx int
		var r roi.ROI
		if err := rows.Scan(&idx, &r.Depth, &r.Genotype, &r.Condition); err != nil {
			return nil, err
		}
		if idx != len(pop.ROIs) {
			return nil, fmt.Errorf("roi indices are not contiguous: expected %d, got %d", len(pop.ROIs), idx)
		}
		pop.ROIs = append(pop.ROIs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pop.ROIs) == 0 {
		return nil, fmt.Errorf("store holds no ROIs")
	}

	var stims int
	if err := s.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT stim_index) FROM roi_metrics`).Scan(&stims); err != nil {
		return nil, err
	}
	if stims == 0 {
		return nil, fmt.Errorf("store holds no roi_metrics rows")
	}
	for i := range pop.ROIs {
		pop.ROIs[i].Reliability = make([]float64, stims)
		pop.ROIs[i].Polarity = make([]float64, stims)
		pop.ROIs[i].Power = make([]float64, stims)
	}

	mrows, err := s.QueryContext(ctx,
		`SELECT roi_index, stim_index, reliability, polarity, power FROM roi_metrics`)
	if err != nil {
		return nil, err
	}
	defer mrows.Close()
	for mrows.Next() {
		var idx, stim int
		var rel, pol, pow float64
		if err := mrows.Scan(&idx, &stim, &rel, &pol, &pow); err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(pop.ROIs) || stim < 0 || stim >= stims {
			return nil, fmt.Errorf("roi_metrics row out of range: roi %d stim %d", idx, stim)
		}
		pop.ROIs[idx].Reliability[stim] = rel
		pop.ROIs[idx].Polarity[stim] = pol
		pop.ROIs[idx].Power[stim] = pow
	}
	if err := mrows.Err(); err != nil {
		return nil, err
	}

	var tensor *roi.ResponseTensor
	rrows, err := s.QueryContext(ctx,
		`SELECT roi_index, stim_index, time_points, repeats, samples FROM responses`)
	if err != nil {
		return nil, err
	}
	defer rrows.Close()
	for rrows.Next() {
		var idx, stim, timePoints, repeats int
		var blob []byte
		if err := rrows.Scan(&idx, &stim, &timePoints, &repeats, &blob); err != nil {
			return nil, err
		}
		if tensor == nil {
			tensor, err = roi.NewResponseTensor(roi.Dims{T: timePoints, R: repeats, S: stims, N: len(pop.ROIs)})
			if err != nil {
				return nil, err
			}
		}
		dims := tensor.Dims()
		if timePoints != dims.T || repeats != dims.R {
			return nil, fmt.Errorf("responses for roi %d stim %d: expected %dx%d trial block, got %dx%d",
				idx, stim, dims.T, dims.R, timePoints, repeats)
		}
		block, err := decodeBlock(blob)
		if err != nil {
			return nil, fmt.Errorf("responses for roi %d stim %d: %w", idx, stim, err)
		}
		if err := tensor.SetTrialBlock(stim, idx, block); err != nil {
			return nil, fmt.Errorf("responses for roi %d stim %d: %w", idx, stim, err)
		}
	}
	if err := rrows.Err(); err != nil {
		return nil, err
	}
	if tensor == nil {
		return nil, fmt.Errorf("store holds no response rows")
	}

	pop.Responses = tensor
	return pop, nil
}

// RecordRun inserts a new analysis-run row and returns its id.
func (s *Store) RecordRun(ctx context.Context, configJSON string) (string, error) {
	id := uuid.NewString()
	_, err := s.ExecContext(ctx,
		`INSERT INTO analysis_runs (run_id, config_json) VALUES (?, ?)`, id, configJSON)
	if err != nil {
		return "", fmt.Errorf("failed to record analysis run: %w", err)
	}
	return id, nil
}

// FinishRun stamps a run row with its harmonised range and finish time.
func (s *Store) FinishRun(ctx context.Context, id string, globalRange float64) error {
	res, err := s.ExecContext(ctx,
		`UPDATE analysis_runs SET global_range = ?, finished_at = ? WHERE run_id = ?`,
		globalRange, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finish analysis run: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("no analysis run with id %s", id)
	}
	return nil
}
