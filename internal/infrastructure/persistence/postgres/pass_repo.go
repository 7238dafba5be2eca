// Package postgres implements the PostgreSQL persistence layer for the
// rankings service.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/tuforums/tuf-rankings/internal/domain/pass"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PASS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PassRepository implements pass.Repository for PostgreSQL.
//
// Мутации принимают Querier, чтобы выполняться внутри транзакции
// вызывающей стороны вместе с пересчётом счётчиков уровня.
type PassRepository struct {
	conn *Connection
}

// NewPassRepository creates a new PassRepository.
func NewPassRepository(conn *Connection) *PassRepository {
	return &PassRepository{conn: conn}
}

const passColumns = `
	id, level_id, player_id, score_v2, accuracy, speed,
	is_12k, is_16k, is_no_hold_tap, is_worlds_first,
	is_deleted, is_duplicate, is_hidden,
	vid_upload_time, vid_link, feeling_rating, created_at, updated_at
`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create inserts a pass and its judgement row within the caller's transaction.
// The generated pass ID is written back into p.
func (r *PassRepository) Create(ctx context.Context, q Querier, p *pass.Pass, j *pass.Judgement) error {
	query := `
		INSERT INTO passes (
			level_id, player_id, score_v2, accuracy, speed,
			is_12k, is_16k, is_no_hold_tap, is_worlds_first,
			is_deleted, is_duplicate, is_hidden,
			vid_upload_time, vid_link, feeling_rating, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	var passID uint64
	err := q.QueryRow(ctx, query,
		p.LevelID,
		p.PlayerID,
		p.ScoreV2,
		p.Accuracy,
		float64(p.Speed),
		p.Is12K,
		p.Is16K,
		p.IsNoHoldTap,
		p.IsWorldsFirst,
		p.IsDeleted,
		p.IsDuplicate,
		p.IsHidden,
		p.VidUploadTime,
		p.VidLink,
		p.FeelingRating,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&passID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return pass.ErrMissingReference
		}
		return fmt.Errorf("failed to create pass: %w", err)
	}

	p.ID = pass.ID(passID)
	j.PassID = p.ID
	return r.upsertJudgement(ctx, q, j)
}

// Update rewrites the mutable fields of a pass within the caller's transaction.
func (r *PassRepository) Update(ctx context.Context, q Querier, p *pass.Pass, j *pass.Judgement) error {
	query := `
		UPDATE passes SET
			level_id = $1,
			player_id = $2,
			score_v2 = $3,
			accuracy = $4,
			speed = $5,
			is_12k = $6,
			is_16k = $7,
			is_no_hold_tap = $8,
			is_duplicate = $9,
			is_hidden = $10,
			vid_upload_time = $11,
			vid_link = $12,
			feeling_rating = $13,
			updated_at = $14
		WHERE id = $15
	`

	p.UpdatedAt = time.Now().UTC()

	tag, err := q.Exec(ctx, query,
		p.LevelID,
		p.PlayerID,
		p.ScoreV2,
		p.Accuracy,
		float64(p.Speed),
		p.Is12K,
		p.Is16K,
		p.IsNoHoldTap,
		p.IsDuplicate,
		p.IsHidden,
		p.VidUploadTime,
		p.VidLink,
		p.FeelingRating,
		p.UpdatedAt,
		uint64(p.ID),
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return pass.ErrMissingReference
		}
		return fmt.Errorf("failed to update pass: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrPassNotFound
	}

	if j != nil {
		j.PassID = p.ID
		return r.upsertJudgement(ctx, q, j)
	}
	return nil
}

// SetDeleted flips the soft-delete flag. Restoring uses deleted=false.
func (r *PassRepository) SetDeleted(ctx context.Context, q Querier, passID pass.ID, deleted bool) error {
	tag, err := q.Exec(ctx,
		`UPDATE passes SET is_deleted = $1, updated_at = NOW() WHERE id = $2`,
		deleted, uint64(passID),
	)
	if err != nil {
		return fmt.Errorf("failed to set pass deleted flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrPassNotFound
	}
	return nil
}

// GetByID returns a pass by ID, including soft-deleted ones.
func (r *PassRepository) GetByID(ctx context.Context, id pass.ID) (*pass.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, uint64(id))
	return scanPass(row)
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *PassRepository) GetByIDTx(ctx context.Context, q Querier, id pass.ID) (*pass.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes WHERE id = $1`

	row := q.QueryRow(ctx, query, uint64(id))
	return scanPass(row)
}

// GetJudgement returns the judgement row for a pass.
func (r *PassRepository) GetJudgement(ctx context.Context, passID pass.ID) (*pass.Judgement, error) {
	query := `
		SELECT pass_id, early_double, early_single, e_perfect, perfect,
			   l_perfect, late_single, late_double
		FROM judgements
		WHERE pass_id = $1
	`

	j := &pass.Judgement{}
	var id uint64
	err := r.conn.QueryRow(ctx, query, uint64(passID)).Scan(
		&id,
		&j.EarlyDouble,
		&j.EarlySingle,
		&j.EPerfect,
		&j.Perfect,
		&j.LPerfect,
		&j.LateSingle,
		&j.LateDouble,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrJudgementNotFound
		}
		return nil, fmt.Errorf("failed to get judgement: %w", err)
	}

	j.PassID = pass.ID(id)
	return j, nil
}

func (r *PassRepository) upsertJudgement(ctx context.Context, q Querier, j *pass.Judgement) error {
	query := `
		INSERT INTO judgements (
			pass_id, early_double, early_single, e_perfect, perfect,
			l_perfect, late_single, late_double
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (pass_id) DO UPDATE SET
			early_double = EXCLUDED.early_double,
			early_single = EXCLUDED.early_single,
			e_perfect = EXCLUDED.e_perfect,
			perfect = EXCLUDED.perfect,
			l_perfect = EXCLUDED.l_perfect,
			late_single = EXCLUDED.late_single,
			late_double = EXCLUDED.late_double
	`

	_, err := q.Exec(ctx, query,
		uint64(j.PassID),
		j.EarlyDouble,
		j.EarlySingle,
		j.EPerfect,
		j.Perfect,
		j.LPerfect,
		j.LateSingle,
		j.LateDouble,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert judgement: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// World's First Resolution
// ─────────────────────────────────────────────────────────────────────────────

// ResolveWorldsFirst reassigns the world's-first flag for one level inside the
// caller's transaction. The holder is the earliest qualifying pass by video
// upload time, with the pass ID breaking ties. Exactly one pass per level
// holds the flag, or none when the level has no qualifying passes.
//
// Returns the player IDs whose passes changed flag state, so the caller can
// schedule stats recomputes for them.
func (r *PassRepository) ResolveWorldsFirst(ctx context.Context, q Querier, levelID uint64) ([]uint64, error) {
	query := `
		WITH holder AS (
			SELECT id
			FROM passes
			WHERE level_id = $1
			  AND NOT is_deleted AND NOT is_duplicate AND NOT is_hidden
			ORDER BY vid_upload_time ASC, id ASC
			LIMIT 1
		), changed AS (
			UPDATE passes p
			SET is_worlds_first = (p.id IN (SELECT id FROM holder)),
			    updated_at = NOW()
			WHERE p.level_id = $1
			  AND p.is_worlds_first IS DISTINCT FROM (p.id IN (SELECT id FROM holder))
			RETURNING p.player_id
		)
		SELECT DISTINCT player_id FROM changed
	`

	rows, err := q.Query(ctx, query, levelID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve worlds first: %w", err)
	}
	defer rows.Close()

	var players []uint64
	for rows.Next() {
		var playerID uint64
		if err := rows.Scan(&playerID); err != nil {
			return nil, fmt.Errorf("failed to scan worlds first player: %w", err)
		}
		players = append(players, playerID)
	}

	return players, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Aggregation Projections
// ─────────────────────────────────────────────────────────────────────────────

// ListQualifyingByPlayer returns every qualifying pass of the player joined
// with its level and difficulty, the projection the stats aggregator consumes.
// Passes on deleted or hidden levels are excluded.
func (r *PassRepository) ListQualifyingByPlayer(ctx context.Context, playerID uint64) ([]pass.QualifyingPass, error) {
	query := `
		SELECT p.id, p.level_id, p.score_v2, p.accuracy, p.is_12k, p.is_worlds_first,
			   l.diff_id, d.sort_order,
			   COALESCE(NULLIF(l.base_score, 0), d.base_score) AS base_score,
			   p.vid_upload_time
		FROM passes p
		JOIN levels l ON l.id = p.level_id
		JOIN difficulties d ON d.id = l.diff_id
		WHERE p.player_id = $1
		  AND NOT p.is_deleted AND NOT p.is_duplicate AND NOT p.is_hidden
		  AND NOT l.is_deleted AND NOT l.is_hidden
	`

	rows, err := r.conn.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list qualifying passes: %w", err)
	}
	defer rows.Close()

	var passes []pass.QualifyingPass
	for rows.Next() {
		var qp pass.QualifyingPass
		var passID uint64
		if err := rows.Scan(
			&passID,
			&qp.LevelID,
			&qp.ScoreV2,
			&qp.Accuracy,
			&qp.Is12K,
			&qp.IsWorldsFirst,
			&qp.DiffID,
			&qp.DiffSortOrder,
			&qp.BaseScore,
			&qp.VidUploadTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan qualifying pass: %w", err)
		}
		qp.PassID = pass.ID(passID)
		passes = append(passes, qp)
	}

	return passes, rows.Err()
}

// ListLevelIDsByPlayer returns the distinct levels the player has passes on,
// including non-qualifying passes. Used when a player-wide moderation change
// needs to touch every affected level counter.
func (r *PassRepository) ListLevelIDsByPlayer(ctx context.Context, playerID uint64) ([]uint64, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT DISTINCT level_id FROM passes WHERE player_id = $1`, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list player levels: %w", err)
	}
	defer rows.Close()

	var levels []uint64
	for rows.Next() {
		var levelID uint64
		if err := rows.Scan(&levelID); err != nil {
			return nil, fmt.Errorf("failed to scan level id: %w", err)
		}
		levels = append(levels, levelID)
	}

	return levels, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPass(row rowScanner) (*pass.Pass, error) {
	p := &pass.Pass{}
	var id uint64
	var speed float64

	err := row.Scan(
		&id,
		&p.LevelID,
		&p.PlayerID,
		&p.ScoreV2,
		&p.Accuracy,
		&speed,
		&p.Is12K,
		&p.Is16K,
		&p.IsNoHoldTap,
		&p.IsWorldsFirst,
		&p.IsDeleted,
		&p.IsDuplicate,
		&p.IsHidden,
		&p.VidUploadTime,
		&p.VidLink,
		&p.FeelingRating,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPassNotFound
		}
		return nil, fmt.Errorf("failed to scan pass: %w", err)
	}

	p.ID = pass.ID(id)
	p.Speed = pass.Speed(speed)
	return p, nil
}
