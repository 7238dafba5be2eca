package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tuforums/tuf-rankings/internal/application/command"
	"github.com/tuforums/tuf-rankings/internal/domain/leaderboard"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/persistence/postgres"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUDIT AGGREGATES JOB
// Полная сверка производного состояния с первичным: счётчики уровней,
// держатели "world's first", статистика игроков и ранги. Каждый шаг
// идемпотентен, поэтому прерванный аудит безопасно перезапускается.
// ══════════════════════════════════════════════════════════════════════════════

// AuditAggregatesJob reconciles every derived value against the source rows.
type AuditAggregatesJob struct {
	conn            *postgres.Connection
	levels          *postgres.LevelRepository
	passes          *postgres.PassRepository
	recompute       *command.RecomputeStatsHandler
	leaderboardRepo leaderboard.Repository
	cache           leaderboard.Cache
	publisher       shared.EventPublisher
	logger          *slog.Logger

	// timeout bounds one full reconciliation.
	timeout time.Duration
}

// NewAuditAggregatesJob creates a new aggregate audit job.
func NewAuditAggregatesJob(
	conn *postgres.Connection,
	levels *postgres.LevelRepository,
	passes *postgres.PassRepository,
	recompute *command.RecomputeStatsHandler,
	leaderboardRepo leaderboard.Repository,
	cache leaderboard.Cache,
	publisher shared.EventPublisher,
	logger *slog.Logger,
	timeout time.Duration,
) *AuditAggregatesJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditAggregatesJob{
		conn:            conn,
		levels:          levels,
		passes:          passes,
		recompute:       recompute,
		leaderboardRepo: leaderboardRepo,
		cache:           cache,
		publisher:       publisher,
		logger:          logger,
		timeout:         timeout,
	}
}

// Name returns the job name.
func (j *AuditAggregatesJob) Name() string {
	return "audit_aggregates"
}

// Description returns a human-readable description.
func (j *AuditAggregatesJob) Description() string {
	return "Reconciles level counters, world's-first holders, player stats and ranks against source rows"
}

// Run executes the full reconciliation.
func (j *AuditAggregatesJob) Run(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	started := time.Now()

	driftCount, err := j.repairCounters(ctx)
	if err != nil {
		return fmt.Errorf("audit_aggregates: %w", err)
	}

	if err := j.resolveWorldsFirsts(ctx); err != nil {
		return fmt.Errorf("audit_aggregates: %w", err)
	}

	recomputed, err := j.recompute.HandleAll(ctx)
	if err != nil {
		return fmt.Errorf("audit_aggregates: stats rebuild: %w", err)
	}

	for _, metric := range leaderboard.AllMetrics() {
		if err := j.leaderboardRepo.ReassignRanks(ctx, metric); err != nil {
			return fmt.Errorf("audit_aggregates: reassign %s ranks: %w", metric, err)
		}
	}

	if err := j.cache.InvalidateTag(ctx, leaderboard.TagAll); err != nil {
		j.logger.Warn("leaderboard cache invalidation failed",
			"error", err.Error(),
		)
	}

	_ = j.publisher.Publish(ctx, shared.NewAuditCompletedEvent(driftCount, recomputed))

	j.logger.Info("aggregate audit completed",
		"drifted_levels", driftCount,
		"players_recomputed", recomputed,
		"duration", time.Since(started).String(),
	)
	return nil
}

// repairCounters recounts the denormalized level counters and fixes every
// drifted level. Returns the number of drifted levels.
func (j *AuditAggregatesJob) repairCounters(ctx context.Context) (int, error) {
	drifts, err := j.levels.AuditCounters(ctx)
	if err != nil {
		return 0, fmt.Errorf("counter audit: %w", err)
	}

	for _, d := range drifts {
		j.logger.Warn("counter drift detected",
			"level_id", d.LevelID,
			"stored_clears", d.StoredClears,
			"actual_clears", d.ActualClears,
			"stored_likes", d.StoredLikes,
			"actual_likes", d.ActualLikes,
			"stored_accuracy", d.StoredAccuracy,
			"actual_accuracy", d.ActualAccuracy,
		)
		if err := j.levels.RepairCounters(ctx, d.LevelID); err != nil {
			return len(drifts), fmt.Errorf("repair level %d: %w", d.LevelID, err)
		}
	}
	return len(drifts), nil
}

// resolveWorldsFirsts re-runs the world's-first resolver on every level.
// One transaction per level keeps lock footprints small.
func (j *AuditAggregatesJob) resolveWorldsFirsts(ctx context.Context) error {
	ids, err := j.levels.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list levels: %w", err)
	}

	for _, levelID := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := j.conn.WithTx(ctx, postgres.DefaultTxOptions(), func(tx pgx.Tx) error {
			_, err := j.passes.ResolveWorldsFirst(ctx, tx, levelID)
			return err
		})
		if err != nil {
			return fmt.Errorf("resolve worlds first for level %d: %w", levelID, err)
		}
	}
	return nil
}
