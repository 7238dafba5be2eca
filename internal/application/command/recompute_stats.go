package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tuforums/tuf-rankings/internal/domain/player"
	"github.com/tuforums/tuf-rankings/internal/domain/scoring"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/persistence/postgres"
	"github.com/tuforums/tuf-rankings/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOMPUTE STATS COMMAND
// Rebuilds one player's aggregated statistics from their full set of
// qualifying passes. Always a full recompute, never incremental: dearer per
// write, but immune to bulk edits and backdated corrections.
// ══════════════════════════════════════════════════════════════════════════════

// RecomputeStatsCommand identifies the player to recompute.
type RecomputeStatsCommand struct {
	// PlayerID is the player whose aggregates are rebuilt.
	PlayerID uint64
}

// Validate validates the command.
func (c RecomputeStatsCommand) Validate() error {
	if c.PlayerID == 0 {
		return shared.ErrInvalidID
	}
	return nil
}

// RecomputeStatsResult contains the rebuilt aggregates.
type RecomputeStatsResult struct {
	// Stats is the persisted statistics row.
	Stats player.Stats

	// RecomputedAt is when the rebuild finished.
	RecomputedAt time.Time
}

// RecomputeStatsHandler handles the RecomputeStatsCommand.
type RecomputeStatsHandler struct {
	passes    *postgres.PassRepository
	players   *postgres.PlayerRepository
	scoring   scoring.Config
	publisher shared.EventPublisher
	retrier   *retry.Retrier
	logger    *slog.Logger
}

// NewRecomputeStatsHandler creates a new RecomputeStatsHandler.
// maxAttempts bounds the retry loop around the read-aggregate-write cycle.
func NewRecomputeStatsHandler(
	passes *postgres.PassRepository,
	players *postgres.PlayerRepository,
	scoringCfg scoring.Config,
	publisher shared.EventPublisher,
	maxAttempts int,
	logger *slog.Logger,
) *RecomputeStatsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecomputeStatsHandler{
		passes:    passes,
		players:   players,
		scoring:   scoringCfg,
		publisher: publisher,
		retrier:   retry.RecomputeRetrier(maxAttempts),
		logger:    logger,
	}
}

// Handle executes the recompute stats command.
func (h *RecomputeStatsHandler) Handle(ctx context.Context, cmd RecomputeStatsCommand) (*RecomputeStatsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("recompute_stats: validation failed: %w", err)
	}

	var stats player.Stats
	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		passes, err := h.passes.ListQualifyingByPlayer(ctx, cmd.PlayerID)
		if err != nil {
			return fmt.Errorf("failed to list qualifying passes: %w", err)
		}

		summary := h.scoring.Aggregate(passes)
		stats = player.Stats{
			PlayerID:           cmd.PlayerID,
			RankedScore:        summary.RankedScore,
			GeneralScore:       summary.GeneralScore,
			PPScore:            summary.PPScore,
			WFScore:            summary.WFScore,
			Score12K:           summary.Score12K,
			AverageXacc:        summary.AverageXacc,
			UniversalPassCount: summary.UniversalPassCount,
			WorldsFirstCount:   summary.WorldsFirstCount,
			TopDiffID:          summary.TopDiffID,
			Top12KDiffID:       summary.Top12KDiffID,
			TotalPasses:        summary.TotalPasses,
			LastUpdated:        time.Now().UTC(),
		}

		if err := h.players.UpsertStats(ctx, stats); err != nil {
			if errors.Is(err, shared.ErrPlayerNotFound) {
				return retry.Permanent(err)
			}
			return fmt.Errorf("failed to upsert stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recompute_stats: player %d: %w", cmd.PlayerID, err)
	}

	_ = h.publisher.Publish(ctx, shared.NewStatsRecomputedEvent(cmd.PlayerID))

	return &RecomputeStatsResult{Stats: stats, RecomputedAt: stats.LastUpdated}, nil
}

// HandleAll rebuilds the aggregates of every known player. Per-player
// failures are logged and skipped so a single dangling reference cannot
// stall a full rebuild. Returns the number of players recomputed.
func (h *RecomputeStatsHandler) HandleAll(ctx context.Context) (int, error) {
	ids, err := h.players.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("recompute_stats: failed to list players: %w", err)
	}

	done := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if _, err := h.Handle(ctx, RecomputeStatsCommand{PlayerID: id}); err != nil {
			h.logger.Error("player stats recompute failed",
				slog.Uint64("player_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		done++
	}
	return done, nil
}
