package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tuforums/tuf-rankings/internal/domain/pass"
	"github.com/tuforums/tuf-rankings/internal/domain/scoring"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/persistence/postgres"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE PASS COMMAND
// Moderator edit of an existing pass. Any change re-scores the pass,
// refreshes the level counters and re-resolves the world's-first holder.
// ══════════════════════════════════════════════════════════════════════════════

// UpdatePassCommand contains a partial edit of a pass. Nil fields keep
// their current values.
type UpdatePassCommand struct {
	// PassID is the pass being edited.
	PassID pass.ID

	// Speed replaces the speed multiplier.
	Speed *float64

	// Is12K replaces the 12-key-mode flag.
	Is12K *bool

	// Is16K replaces the 16-key-mode flag.
	Is16K *bool

	// IsNoHoldTap replaces the no-hold flag.
	IsNoHoldTap *bool

	// IsDuplicate marks or unmarks the pass as a duplicate.
	IsDuplicate *bool

	// IsHidden hides or unhides the pass.
	IsHidden *bool

	// VidUploadTime replaces the chronological key.
	VidUploadTime *time.Time

	// VidLink replaces the proof video URL.
	VidLink *string

	// FeelingRating replaces the subjective difficulty opinion.
	FeelingRating *string

	// Judgement replaces the seven accuracy counters.
	Judgement *JudgementInput
}

// Validate validates the command.
func (c UpdatePassCommand) Validate() error {
	if !c.PassID.IsValid() {
		return shared.ErrInvalidID
	}
	if c.Speed != nil && !pass.Speed(*c.Speed).IsValid() {
		return pass.ErrInvalidSpeed
	}
	if c.VidUploadTime != nil && c.VidUploadTime.IsZero() {
		return pass.ErrMissingUploadTime
	}
	if c.Judgement != nil {
		return c.Judgement.toJudgement(c.PassID).Validate()
	}
	return nil
}

// UpdatePassResult contains the result of a pass edit.
type UpdatePassResult struct {
	// PassID is the edited pass.
	PassID pass.ID

	// ScoreV2 is the recomputed score.
	ScoreV2 float64

	// AffectedPlayerIDs lists players whose aggregates must be recomputed.
	AffectedPlayerIDs []uint64
}

// UpdatePassHandler handles the UpdatePassCommand.
type UpdatePassHandler struct {
	conn      *postgres.Connection
	passes    *postgres.PassRepository
	levels    *postgres.LevelRepository
	scoring   scoring.Config
	publisher shared.EventPublisher
}

// NewUpdatePassHandler creates a new UpdatePassHandler.
func NewUpdatePassHandler(
	conn *postgres.Connection,
	passes *postgres.PassRepository,
	levels *postgres.LevelRepository,
	scoringCfg scoring.Config,
	publisher shared.EventPublisher,
) *UpdatePassHandler {
	return &UpdatePassHandler{
		conn:      conn,
		passes:    passes,
		levels:    levels,
		scoring:   scoringCfg,
		publisher: publisher,
	}
}

// Handle executes the update pass command.
func (h *UpdatePassHandler) Handle(ctx context.Context, cmd UpdatePassCommand) (*UpdatePassResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_pass: validation failed: %w", err)
	}

	p, err := h.passes.GetByID(ctx, cmd.PassID)
	if err != nil {
		return nil, fmt.Errorf("update_pass: failed to get pass: %w", err)
	}

	j, err := h.passes.GetJudgement(ctx, cmd.PassID)
	if err != nil {
		return nil, fmt.Errorf("update_pass: failed to get judgement: %w", err)
	}

	applyPassEdit(p, j, cmd)

	lvl, err := h.levels.GetByID(ctx, p.LevelID)
	if err != nil {
		return nil, fmt.Errorf("update_pass: failed to get level: %w", err)
	}
	diff, err := h.levels.GetDifficulty(ctx, lvl.DiffID)
	if err != nil {
		return nil, fmt.Errorf("update_pass: failed to get difficulty: %w", err)
	}

	accuracy := j.Accuracy()
	p.Accuracy = &accuracy
	p.ScoreV2 = h.scoring.ScoreV2(scoring.PassInput{
		BaseScore: lvl.EffectiveBaseScore(*diff),
		Xacc:      accuracy,
		Speed:     float64(p.Speed.Normalize()),
		Tiles:     j.TileCount(),
		Misses:    j.Misses(),
		NoHoldTap: p.IsNoHoldTap,
	})

	var wfChanged []uint64
	err = h.conn.WithTx(ctx, postgres.DefaultTxOptions(), func(tx pgx.Tx) error {
		if err := h.passes.Update(ctx, tx, p, j); err != nil {
			return fmt.Errorf("failed to update pass: %w", err)
		}
		if err := h.levels.RecalculateClears(ctx, tx, p.LevelID); err != nil {
			return fmt.Errorf("failed to recalculate clears: %w", err)
		}
		wfChanged, err = h.passes.ResolveWorldsFirst(ctx, tx, p.LevelID)
		if err != nil {
			return fmt.Errorf("failed to resolve worlds first: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update_pass: %w", err)
	}

	affected := mergeAffected(p.PlayerID, wfChanged)
	event := shared.NewPassChangedEvent(
		shared.EventPassUpdated, uint64(p.ID), p.LevelID, p.PlayerID, affected,
	)
	_ = h.publisher.Publish(ctx, event)

	return &UpdatePassResult{
		PassID:            p.ID,
		ScoreV2:           p.ScoreV2,
		AffectedPlayerIDs: affected,
	}, nil
}

// applyPassEdit copies the non-nil command fields onto the entities.
func applyPassEdit(p *pass.Pass, j *pass.Judgement, cmd UpdatePassCommand) {
	if cmd.Speed != nil {
		p.Speed = pass.Speed(*cmd.Speed)
	}
	if cmd.Is12K != nil {
		p.Is12K = *cmd.Is12K
	}
	if cmd.Is16K != nil {
		p.Is16K = *cmd.Is16K
	}
	if cmd.IsNoHoldTap != nil {
		p.IsNoHoldTap = *cmd.IsNoHoldTap
	}
	if cmd.IsDuplicate != nil {
		p.IsDuplicate = *cmd.IsDuplicate
	}
	if cmd.IsHidden != nil {
		p.IsHidden = *cmd.IsHidden
	}
	if cmd.VidUploadTime != nil {
		p.VidUploadTime = cmd.VidUploadTime.UTC()
	}
	if cmd.VidLink != nil {
		p.VidLink = *cmd.VidLink
	}
	if cmd.FeelingRating != nil {
		p.FeelingRating = *cmd.FeelingRating
	}
	if cmd.Judgement != nil {
		*j = cmd.Judgement.toJudgement(p.ID)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE / RESTORE PASS COMMAND
// Soft deletion. A deleted pass stops qualifying for every aggregate but the
// row survives, so restoration recovers the full history.
// ══════════════════════════════════════════════════════════════════════════════

// DeletePassCommand soft-deletes or restores a pass.
type DeletePassCommand struct {
	// PassID is the pass being deleted or restored.
	PassID pass.ID

	// Restore flips the operation into a restoration.
	Restore bool
}

// Validate validates the command.
func (c DeletePassCommand) Validate() error {
	if !c.PassID.IsValid() {
		return shared.ErrInvalidID
	}
	return nil
}

// DeletePassResult contains the result of a soft delete or restore.
type DeletePassResult struct {
	// PassID is the affected pass.
	PassID pass.ID

	// IsDeleted is the state after the operation.
	IsDeleted bool

	// AffectedPlayerIDs lists players whose aggregates must be recomputed.
	AffectedPlayerIDs []uint64
}

// DeletePassHandler handles the DeletePassCommand.
type DeletePassHandler struct {
	conn      *postgres.Connection
	passes    *postgres.PassRepository
	levels    *postgres.LevelRepository
	publisher shared.EventPublisher
}

// NewDeletePassHandler creates a new DeletePassHandler.
func NewDeletePassHandler(
	conn *postgres.Connection,
	passes *postgres.PassRepository,
	levels *postgres.LevelRepository,
	publisher shared.EventPublisher,
) *DeletePassHandler {
	return &DeletePassHandler{
		conn:      conn,
		passes:    passes,
		levels:    levels,
		publisher: publisher,
	}
}

// Handle executes the delete or restore command.
func (h *DeletePassHandler) Handle(ctx context.Context, cmd DeletePassCommand) (*DeletePassResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("delete_pass: validation failed: %w", err)
	}

	p, err := h.passes.GetByID(ctx, cmd.PassID)
	if err != nil {
		return nil, fmt.Errorf("delete_pass: failed to get pass: %w", err)
	}

	if cmd.Restore && !p.IsDeleted {
		return nil, fmt.Errorf("delete_pass: %w", shared.ErrPassNotDeleted)
	}
	if !cmd.Restore && p.IsDeleted {
		return nil, fmt.Errorf("delete_pass: %w", shared.ErrPassAlreadyDeleted)
	}

	deleted := !cmd.Restore
	var wfChanged []uint64
	err = h.conn.WithTx(ctx, postgres.DefaultTxOptions(), func(tx pgx.Tx) error {
		if err := h.passes.SetDeleted(ctx, tx, cmd.PassID, deleted); err != nil {
			return fmt.Errorf("failed to set deleted: %w", err)
		}
		if err := h.levels.RecalculateClears(ctx, tx, p.LevelID); err != nil {
			return fmt.Errorf("failed to recalculate clears: %w", err)
		}
		wfChanged, err = h.passes.ResolveWorldsFirst(ctx, tx, p.LevelID)
		if err != nil {
			return fmt.Errorf("failed to resolve worlds first: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete_pass: %w", err)
	}

	eventType := shared.EventPassDeleted
	if cmd.Restore {
		eventType = shared.EventPassRestored
	}
	affected := mergeAffected(p.PlayerID, wfChanged)
	event := shared.NewPassChangedEvent(
		eventType, uint64(p.ID), p.LevelID, p.PlayerID, affected,
	)
	_ = h.publisher.Publish(ctx, event)

	return &DeletePassResult{
		PassID:            cmd.PassID,
		IsDeleted:         deleted,
		AffectedPlayerIDs: affected,
	}, nil
}
