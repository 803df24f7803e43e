package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tavendale/equity-council/internal/database/repositories"
)

// DefaultRunRetention keeps roughly a quarter of analysis history.
const DefaultRunRetention = 90 * 24 * time.Hour

// PruneRunsJob deletes analysis runs older than the retention window.
type PruneRunsJob struct {
	log       zerolog.Logger
	runs      *repositories.RunRepository
	retention time.Duration
}

// NewPruneRunsJob creates a run pruning job.
func NewPruneRunsJob(log zerolog.Logger, runs *repositories.RunRepository, retention time.Duration) *PruneRunsJob {
	if retention <= 0 {
		retention = DefaultRunRetention
	}
	return &PruneRunsJob{
		log:       log.With().Str("job", "prune_runs").Logger(),
		runs:      runs,
		retention: retention,
	}
}

// Name implements Job.
func (j *PruneRunsJob) Name() string {
	return "prune_runs"
}

// Run implements Job.
func (j *PruneRunsJob) Run() error {
	deleted, err := j.runs.Prune(j.retention)
	if err != nil {
		return fmt.Errorf("failed to prune runs: %w", err)
	}
	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Old analysis runs pruned")
	}
	return nil
}
