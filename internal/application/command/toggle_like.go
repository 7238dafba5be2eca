package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/tuforums/tuf-rankings/internal/domain/shared"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/persistence/postgres"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOGGLE LIKE COMMAND
// Adds or removes a player's like and refreshes the level's like counter in
// the same transaction. Idempotent: liking an already-liked level or removing
// an absent like is reported as an unchanged result, not an error.
// ══════════════════════════════════════════════════════════════════════════════

// ToggleLikeCommand contains a like toggle.
type ToggleLikeCommand struct {
	// LevelID is the liked level.
	LevelID uint64

	// PlayerID is the acting player.
	PlayerID uint64

	// Liked is the desired state: true adds the like, false removes it.
	Liked bool
}

// Validate validates the command.
func (c ToggleLikeCommand) Validate() error {
	if c.LevelID == 0 || c.PlayerID == 0 {
		return shared.ErrInvalidID
	}
	return nil
}

// ToggleLikeResult contains the result of a like toggle.
type ToggleLikeResult struct {
	// LevelID is the affected level.
	LevelID uint64

	// Liked is the state after the operation.
	Liked bool

	// Changed reports whether the write actually happened.
	Changed bool
}

// ToggleLikeHandler handles the ToggleLikeCommand.
type ToggleLikeHandler struct {
	conn      *postgres.Connection
	levels    *postgres.LevelRepository
	publisher shared.EventPublisher
}

// NewToggleLikeHandler creates a new ToggleLikeHandler.
func NewToggleLikeHandler(
	conn *postgres.Connection,
	levels *postgres.LevelRepository,
	publisher shared.EventPublisher,
) *ToggleLikeHandler {
	return &ToggleLikeHandler{
		conn:      conn,
		levels:    levels,
		publisher: publisher,
	}
}

// Handle executes the toggle like command.
func (h *ToggleLikeHandler) Handle(ctx context.Context, cmd ToggleLikeCommand) (*ToggleLikeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("toggle_like: validation failed: %w", err)
	}

	err := h.conn.WithTx(ctx, postgres.DefaultTxOptions(), func(tx pgx.Tx) error {
		if cmd.Liked {
			if err := h.levels.InsertLike(ctx, tx, cmd.LevelID, cmd.PlayerID); err != nil {
				return err
			}
		} else {
			if err := h.levels.DeleteLike(ctx, tx, cmd.LevelID, cmd.PlayerID); err != nil {
				return err
			}
		}
		if err := h.levels.RecalculateLikes(ctx, tx, cmd.LevelID); err != nil {
			return fmt.Errorf("failed to recalculate likes: %w", err)
		}
		return nil
	})

	// Уже в желаемом состоянии: транзакция откатилась, ничего не менялось.
	if errors.Is(err, shared.ErrLikeExists) || errors.Is(err, shared.ErrLikeNotFound) {
		return &ToggleLikeResult{LevelID: cmd.LevelID, Liked: cmd.Liked, Changed: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("toggle_like: %w", err)
	}

	_ = h.publisher.Publish(ctx, shared.NewLikeChangedEvent(cmd.LevelID))

	return &ToggleLikeResult{LevelID: cmd.LevelID, Liked: cmd.Liked, Changed: true}, nil
}
