package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tavendale/equity-council/internal/domain"
)

// DefaultSnapshotTTL is how long a cached snapshot counts as fresh.
// Financial statements move quarterly; a day-old snapshot is current for
// everything except the live quote.
const DefaultSnapshotTTL = 24 * time.Hour

// CachedSnapshot is a cache lookup result. Stale snapshots are returned
// rather than discarded: the caller decides whether to serve them when the
// upstream fetch fails.
type CachedSnapshot struct {
	Found     bool
	Stale     bool
	Data      *domain.FinancialData
	FetchedAt time.Time
}

// SnapshotRepository persists per-ticker financial snapshots as msgpack
// blobs.
type SnapshotRepository struct {
	*BaseRepository
	ttl time.Duration
}

// NewSnapshotRepository creates a snapshot repository with the default TTL.
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		BaseRepository: NewBase(db, log.With().Str("repo", "snapshots").Logger()),
		ttl:            DefaultSnapshotTTL,
	}
}

// WithTTL overrides the freshness window.
func (r *SnapshotRepository) WithTTL(ttl time.Duration) *SnapshotRepository {
	r.ttl = ttl
	return r
}

// Get looks up the cached snapshot for a ticker.
func (r *SnapshotRepository) Get(ticker string) (CachedSnapshot, error) {
	var (
		payload   []byte
		fetchedAt time.Time
	)
	err := r.db.QueryRow(
		`SELECT payload, fetched_at FROM financial_snapshots WHERE ticker = ?`, ticker,
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedSnapshot{}, nil
	}
	if err != nil {
		return CachedSnapshot{}, fmt.Errorf("failed to query snapshot for %s: %w", ticker, err)
	}

	var data domain.FinancialData
	if err := msgpack.Unmarshal(payload, &data); err != nil {
		// A corrupt blob is treated as a miss; the next Put overwrites it.
		r.log.Warn().Err(err).Str("ticker", ticker).Msg("Cached snapshot corrupt, ignoring")
		return CachedSnapshot{}, nil
	}

	return CachedSnapshot{
		Found:     true,
		Stale:     time.Since(fetchedAt) > r.ttl,
		Data:      &data,
		FetchedAt: fetchedAt,
	}, nil
}

// Put stores or replaces the snapshot for a ticker.
func (r *SnapshotRepository) Put(ticker string, data *domain.FinancialData) error {
	payload, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for %s: %w", ticker, err)
	}

	_, err = r.db.Exec(
		`INSERT INTO financial_snapshots (ticker, payload, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(ticker) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		ticker, payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store snapshot for %s: %w", ticker, err)
	}
	return nil
}

// StaleTickers returns tickers whose snapshots have aged past the TTL,
// for the background refresh job.
func (r *SnapshotRepository) StaleTickers() ([]string, error) {
	cutoff := time.Now().UTC().Add(-r.ttl)
	rows, err := r.db.Query(
		`SELECT ticker FROM financial_snapshots WHERE fetched_at < ? ORDER BY fetched_at ASC`, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}
