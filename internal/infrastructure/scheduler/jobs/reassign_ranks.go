// Package jobs contains implementations of scheduled jobs for the rankings
// service.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tuforums/tuf-rankings/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// REASSIGN RANKS JOB
// Страховочный контур поверх событийного переназначения рангов: даже если
// обработчик события упал или процесс перезапустился между коммитом и
// асинхронной фазой, ранги сойдутся за один интервал.
// ══════════════════════════════════════════════════════════════════════════════

// ReassignRanksJob refreshes the dense ranks of all five metrics.
type ReassignRanksJob struct {
	leaderboardRepo leaderboard.Repository
	cache           leaderboard.Cache
	logger          *slog.Logger

	// timeout bounds one full five-metric sweep.
	timeout time.Duration
}

// NewReassignRanksJob creates a new rank reassignment job.
func NewReassignRanksJob(
	leaderboardRepo leaderboard.Repository,
	cache leaderboard.Cache,
	logger *slog.Logger,
	timeout time.Duration,
) *ReassignRanksJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReassignRanksJob{
		leaderboardRepo: leaderboardRepo,
		cache:           cache,
		logger:          logger,
		timeout:         timeout,
	}
}

// Name returns the job name.
func (j *ReassignRanksJob) Name() string {
	return "reassign_ranks"
}

// Description returns a human-readable description.
func (j *ReassignRanksJob) Description() string {
	return "Refreshes dense leaderboard ranks for all ranking metrics"
}

// Run executes the rank reassignment sweep. Each metric is one idempotent
// window-function statement, so an aborted sweep is safe to rerun.
func (j *ReassignRanksJob) Run(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	started := time.Now()
	for _, metric := range leaderboard.AllMetrics() {
		if err := j.leaderboardRepo.ReassignRanks(ctx, metric); err != nil {
			return fmt.Errorf("reassign_ranks: metric %s: %w", metric, err)
		}
	}

	if err := j.cache.InvalidateTag(ctx, leaderboard.TagAll); err != nil {
		j.logger.Warn("leaderboard cache invalidation failed",
			"error", err.Error(),
		)
	}

	j.logger.Info("rank sweep completed",
		"metrics", len(leaderboard.AllMetrics()),
		"duration", time.Since(started).String(),
	)
	return nil
}
