package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tavendale/equity-council/internal/database/repositories"
	"github.com/tavendale/equity-council/internal/events"
)

// RefreshSnapshotsJob re-fetches snapshots that have aged past the cache TTL
// so scheduled analyses start from fresh data. Refresh failures leave the
// stale snapshot in place; the pipeline's stale-cache fallback covers the gap.
type RefreshSnapshotsJob struct {
	log       zerolog.Logger
	snapshots *repositories.SnapshotRepository
	events    *events.Manager
	refresh   func(ticker string) error // callback into the ingestion service
}

// NewRefreshSnapshotsJob creates a snapshot refresh job.
func NewRefreshSnapshotsJob(
	log zerolog.Logger,
	snapshots *repositories.SnapshotRepository,
	eventManager *events.Manager,
	refresh func(ticker string) error,
) *RefreshSnapshotsJob {
	return &RefreshSnapshotsJob{
		log:       log.With().Str("job", "refresh_snapshots").Logger(),
		snapshots: snapshots,
		events:    eventManager,
		refresh:   refresh,
	}
}

// Name implements Job.
func (j *RefreshSnapshotsJob) Name() string {
	return "refresh_snapshots"
}

// Run refreshes every stale ticker sequentially. Sequential on purpose: this
// runs off-peak and a slow crawl is kinder to the upstream API than a burst.
func (j *RefreshSnapshotsJob) Run() error {
	tickers, err := j.snapshots.StaleTickers()
	if err != nil {
		return fmt.Errorf("failed to list stale tickers: %w", err)
	}
	if len(tickers) == 0 {
		j.log.Debug().Msg("No stale snapshots")
		return nil
	}

	start := time.Now()
	var failed int
	for _, ticker := range tickers {
		if err := j.refresh(ticker); err != nil {
			failed++
			j.events.EmitError("scheduler", err, map[string]interface{}{"ticker": ticker})
			continue
		}
		j.events.Emit(events.CacheRefresh, "scheduler", map[string]interface{}{"ticker": ticker})
	}

	j.log.Info().
		Int("refreshed", len(tickers)-failed).
		Int("failed", failed).
		Dur("elapsed", time.Since(start)).
		Msg("Snapshot refresh completed")

	if failed == len(tickers) {
		return fmt.Errorf("all %d snapshot refreshes failed", failed)
	}
	return nil
}
