// Package command contains write operations (CQRS - Commands).
//
// Каждая команда выполняет собственную запись, пересчёт счётчиков уровня и
// разрешение "world's first" в одной транзакции, а после коммита публикует
// доменное событие. Асинхронные последствия (пересчёт статистики, ранги,
// сброс кеша) живут в пакете eventhandler и никогда не выполняются внутри
// транзакции, которая ещё может откатиться.
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
// SUBMIT PASS COMMAND
// Records a new level clear: scores it, persists pass + judgement, refreshes
// the level's clear counter and re-resolves the world's-first holder.
// ══════════════════════════════════════════════════════════════════════════════

// JudgementInput carries the seven accuracy counters of a submission.
type JudgementInput struct {
	EarlyDouble int `json:"earlyDouble"`
	EarlySingle int `json:"earlySingle"`
	EPerfect    int `json:"ePerfect"`
	Perfect     int `json:"perfect"`
	LPerfect    int `json:"lPerfect"`
	LateSingle  int `json:"lateSingle"`
	LateDouble  int `json:"lateDouble"`
}

// toJudgement converts the input into a domain judgement for the given pass.
func (in JudgementInput) toJudgement(passID pass.ID) pass.Judgement {
	return pass.Judgement{
		PassID:      passID,
		EarlyDouble: in.EarlyDouble,
		EarlySingle: in.EarlySingle,
		EPerfect:    in.EPerfect,
		Perfect:     in.Perfect,
		LPerfect:    in.LPerfect,
		LateSingle:  in.LateSingle,
		LateDouble:  in.LateDouble,
	}
}

// SubmitPassCommand contains the data to record a new pass.
type SubmitPassCommand struct {
	// LevelID is the cleared level.
	LevelID uint64

	// PlayerID is the player who cleared it.
	PlayerID uint64

	// Speed is the playback speed multiplier; 0 is treated as 1.0.
	Speed float64

	// Is12K marks a 12-key-mode clear.
	Is12K bool

	// Is16K marks a 16-key-mode clear.
	Is16K bool

	// IsNoHoldTap marks a clear performed without holds.
	IsNoHoldTap bool

	// VidUploadTime is when the proof video was uploaded. This is the
	// chronological key for world's-first resolution.
	VidUploadTime time.Time

	// VidLink is the proof video URL.
	VidLink string

	// FeelingRating is the player's subjective difficulty opinion.
	FeelingRating string

	// Judgement holds the seven accuracy counters.
	Judgement JudgementInput
}

// Validate validates the command.
func (c SubmitPassCommand) Validate() error {
	if c.LevelID == 0 || c.PlayerID == 0 {
		return pass.ErrMissingReference
	}
	if !pass.Speed(c.Speed).IsValid() {
		return pass.ErrInvalidSpeed
	}
	if c.VidUploadTime.IsZero() {
		return pass.ErrMissingUploadTime
	}
	return c.Judgement.toJudgement(0).Validate()
}

// SubmitPassResult contains the result of a pass submission.
type SubmitPassResult struct {
	// PassID is the identifier of the created pass.
	PassID pass.ID

	// ScoreV2 is the computed score of the pass.
	ScoreV2 float64

	// Accuracy is the weighted accuracy mirrored from the judgement.
	Accuracy float64

	// AffectedPlayerIDs lists players whose aggregates must be recomputed.
	AffectedPlayerIDs []uint64

	// SubmittedAt is when the pass was recorded.
	SubmittedAt time.Time
}

// ──────────────────────────────────────────────────────────────────────────────
// HANDLER
// ──────────────────────────────────────────────────────────────────────────────

// SubmitPassHandler handles the SubmitPassCommand.
type SubmitPassHandler struct {
	conn      *postgres.Connection
	passes    *postgres.PassRepository
	levels    *postgres.LevelRepository
	scoring   scoring.Config
	publisher shared.EventPublisher
}

// NewSubmitPassHandler creates a new SubmitPassHandler.
func NewSubmitPassHandler(
	conn *postgres.Connection,
	passes *postgres.PassRepository,
	levels *postgres.LevelRepository,
	scoringCfg scoring.Config,
	publisher shared.EventPublisher,
) *SubmitPassHandler {
	return &SubmitPassHandler{
		conn:      conn,
		passes:    passes,
		levels:    levels,
		scoring:   scoringCfg,
		publisher: publisher,
	}
}

// Handle executes the submit pass command.
func (h *SubmitPassHandler) Handle(ctx context.Context, cmd SubmitPassCommand) (*SubmitPassResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("submit_pass: validation failed: %w", err)
	}

	lvl, err := h.levels.GetByID(ctx, cmd.LevelID)
	if err != nil {
		return nil, fmt.Errorf("submit_pass: failed to get level: %w", err)
	}
	if lvl.IsDeleted {
		return nil, fmt.Errorf("submit_pass: %w", shared.ErrLevelDeleted)
	}

	diff, err := h.levels.GetDifficulty(ctx, lvl.DiffID)
	if err != nil {
		return nil, fmt.Errorf("submit_pass: failed to get difficulty: %w", err)
	}

	// Очки и зеркальная точность считаются до транзакции: обе величины
	// детерминированы и зависят только от входа и справочных данных.
	j := cmd.Judgement.toJudgement(0)
	accuracy := j.Accuracy()
	score := h.scoring.ScoreV2(scoring.PassInput{
		BaseScore: lvl.EffectiveBaseScore(*diff),
		Xacc:      accuracy,
		Speed:     float64(pass.Speed(cmd.Speed).Normalize()),
		Tiles:     j.TileCount(),
		Misses:    j.Misses(),
		NoHoldTap: cmd.IsNoHoldTap,
	})

	p := &pass.Pass{
		LevelID:       cmd.LevelID,
		PlayerID:      cmd.PlayerID,
		ScoreV2:       score,
		Accuracy:      &accuracy,
		Speed:         pass.Speed(cmd.Speed),
		Is12K:         cmd.Is12K,
		Is16K:         cmd.Is16K,
		IsNoHoldTap:   cmd.IsNoHoldTap,
		VidUploadTime: cmd.VidUploadTime.UTC(),
		VidLink:       cmd.VidLink,
		FeelingRating: cmd.FeelingRating,
	}

	var wfChanged []uint64
	err = h.conn.WithTx(ctx, postgres.DefaultTxOptions(), func(tx pgx.Tx) error {
		if err := h.passes.Create(ctx, tx, p, &j); err != nil {
			return fmt.Errorf("failed to create pass: %w", err)
		}
		if err := h.levels.RecalculateClears(ctx, tx, cmd.LevelID); err != nil {
			return fmt.Errorf("failed to recalculate clears: %w", err)
		}
		wfChanged, err = h.passes.ResolveWorldsFirst(ctx, tx, cmd.LevelID)
		if err != nil {
			return fmt.Errorf("failed to resolve worlds first: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit_pass: %w", err)
	}

	affected := mergeAffected(cmd.PlayerID, wfChanged)
	event := shared.NewPassChangedEvent(
		shared.EventPassCreated, uint64(p.ID), cmd.LevelID, cmd.PlayerID, affected,
	)
	_ = h.publisher.Publish(ctx, event)

	return &SubmitPassResult{
		PassID:            p.ID,
		ScoreV2:           score,
		Accuracy:          accuracy,
		AffectedPlayerIDs: affected,
		SubmittedAt:       time.Now().UTC(),
	}, nil
}

// mergeAffected returns the deduplicated union of the acting player and
// everyone whose world's-first flag flipped.
func mergeAffected(playerID uint64, wfChanged []uint64) []uint64 {
	seen := map[uint64]struct{}{playerID: {}}
	affected := []uint64{playerID}
	for _, id := range wfChanged {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		affected = append(affected, id)
	}
	return affected
}
