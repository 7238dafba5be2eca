package command

import (
	"context"
	"fmt"

	"github.com/tuforums/tuf-rankings/internal/domain/level"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/persistence/postgres"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// CAST VOTE COMMAND
// Upserts or removes a rating-accuracy vote and refreshes the level's live
// average inside the same transaction. The vote is pinned to the level's
// difficulty at the moment of voting: after a rerate old votes drop out of
// the average without being deleted.
// ══════════════════════════════════════════════════════════════════════════════

// CastVoteCommand contains a rating-accuracy vote write.
type CastVoteCommand struct {
	// LevelID is the voted level.
	LevelID uint64

	// PlayerID is the voting player.
	PlayerID uint64

	// Vote is the opinion in [-5, 5]; ignored when Remove is set.
	Vote int

	// Remove withdraws the player's vote instead of casting one.
	Remove bool
}

// Validate validates the command.
func (c CastVoteCommand) Validate() error {
	if c.LevelID == 0 || c.PlayerID == 0 {
		return level.ErrVoteMissingReference
	}
	if !c.Remove && (c.Vote < level.VoteMin || c.Vote > level.VoteMax) {
		return level.ErrVoteOutOfRange
	}
	return nil
}

// CastVoteResult contains the result of a vote write.
type CastVoteResult struct {
	// LevelID is the voted level.
	LevelID uint64

	// DiffID is the difficulty the vote was pinned to.
	DiffID uint64

	// Removed reports whether the operation was a withdrawal.
	Removed bool
}

// CastVoteHandler handles the CastVoteCommand.
type CastVoteHandler struct {
	conn      *postgres.Connection
	levels    *postgres.LevelRepository
	publisher shared.EventPublisher
}

// NewCastVoteHandler creates a new CastVoteHandler.
func NewCastVoteHandler(
	conn *postgres.Connection,
	levels *postgres.LevelRepository,
	publisher shared.EventPublisher,
) *CastVoteHandler {
	return &CastVoteHandler{
		conn:      conn,
		levels:    levels,
		publisher: publisher,
	}
}

// Handle executes the cast vote command.
func (h *CastVoteHandler) Handle(ctx context.Context, cmd CastVoteCommand) (*CastVoteResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("cast_vote: validation failed: %w", err)
	}

	lvl, err := h.levels.GetByID(ctx, cmd.LevelID)
	if err != nil {
		return nil, fmt.Errorf("cast_vote: failed to get level: %w", err)
	}
	if lvl.IsDeleted {
		return nil, fmt.Errorf("cast_vote: %w", shared.ErrLevelDeleted)
	}

	err = h.conn.WithTx(ctx, postgres.DefaultTxOptions(), func(tx pgx.Tx) error {
		if cmd.Remove {
			if err := h.levels.DeleteVote(ctx, tx, cmd.LevelID, cmd.PlayerID); err != nil {
				return fmt.Errorf("failed to delete vote: %w", err)
			}
		} else {
			v := &level.RatingAccuracyVote{
				LevelID:  cmd.LevelID,
				PlayerID: cmd.PlayerID,
				DiffID:   lvl.DiffID,
				Vote:     cmd.Vote,
			}
			if err := v.Validate(); err != nil {
				return err
			}
			if err := h.levels.UpsertVote(ctx, tx, v); err != nil {
				return fmt.Errorf("failed to upsert vote: %w", err)
			}
		}
		if err := h.levels.RecalculateRatingAccuracy(ctx, tx, cmd.LevelID); err != nil {
			return fmt.Errorf("failed to recalculate rating accuracy: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cast_vote: %w", err)
	}

	_ = h.publisher.Publish(ctx, shared.NewVoteChangedEvent(cmd.LevelID, lvl.DiffID))

	return &CastVoteResult{
		LevelID: cmd.LevelID,
		DiffID:  lvl.DiffID,
		Removed: cmd.Remove,
	}, nil
}
