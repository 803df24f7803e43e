package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNoRuns is returned when a ticker has no recorded analysis runs.
var ErrNoRuns = errors.New("no analysis runs recorded")

// RunRepository persists completed analysis reports as msgpack blobs keyed
// by run id. The report type lives upstream, so rows are encoded and decoded
// through the caller's value.
type RunRepository struct {
	*BaseRepository
}

// NewRunRepository creates a run repository.
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		BaseRepository: NewBase(db, log.With().Str("repo", "runs").Logger()),
	}
}

// Save records a completed run.
func (r *RunRepository) Save(runID, ticker string, report any) error {
	payload, err := msgpack.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", runID, err)
	}

	_, err = r.db.Exec(
		`INSERT INTO analysis_runs (id, ticker, payload, created_at) VALUES (?, ?, ?, ?)`,
		runID, ticker, payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store run %s: %w", runID, err)
	}
	return nil
}

// Latest decodes the most recent run for a ticker into out.
func (r *RunRepository) Latest(ticker string, out any) error {
	var payload []byte
	err := r.db.QueryRow(
		`SELECT payload FROM analysis_runs WHERE ticker = ? ORDER BY created_at DESC LIMIT 1`, ticker,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRuns
	}
	if err != nil {
		return fmt.Errorf("failed to query latest run for %s: %w", ticker, err)
	}

	if err := msgpack.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode run for %s: %w", ticker, err)
	}
	return nil
}

// Prune deletes runs older than the retention window, keeping history
// bounded.
func (r *RunRepository) Prune(retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	res, err := r.db.Exec(`DELETE FROM analysis_runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}
