// Package postgres implements the PostgreSQL persistence layer for the
// rankings service.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tuforums/tuf-rankings/internal/domain/level"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LevelRepository implements level.Repository for PostgreSQL.
//
// Счётчики clears / likes / rating_accuracy пересчитываются полностью
// по текущему множеству строк, а не инкрементально: FullRecalculate
// идемпотентен и сходится после любой последовательности мутаций.
type LevelRepository struct {
	conn *Connection
}

// NewLevelRepository creates a new LevelRepository.
func NewLevelRepository(conn *Connection) *LevelRepository {
	return &LevelRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

// GetByID returns a level by ID, including soft-deleted ones.
func (r *LevelRepository) GetByID(ctx context.Context, id uint64) (*level.Level, error) {
	query := `
		SELECT id, song, artist, creator, diff_id, base_score,
			   clears, likes, rating_accuracy,
			   is_deleted, is_hidden, created_at, updated_at
		FROM levels
		WHERE id = $1
	`

	l := &level.Level{}
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&l.ID,
		&l.Song,
		&l.Artist,
		&l.Creator,
		&l.DiffID,
		&l.BaseScore,
		&l.Clears,
		&l.Likes,
		&l.RatingAccuracy,
		&l.IsDeleted,
		&l.IsHidden,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrLevelNotFound
		}
		return nil, fmt.Errorf("failed to get level: %w", err)
	}

	return l, nil
}

// GetDifficulty returns a difficulty by ID.
func (r *LevelRepository) GetDifficulty(ctx context.Context, id uint64) (*level.Difficulty, error) {
	query := `SELECT id, name, base_score, sort_order FROM difficulties WHERE id = $1`

	d := &level.Difficulty{}
	err := r.conn.QueryRow(ctx, query, id).Scan(&d.ID, &d.Name, &d.BaseScore, &d.SortOrder)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrDifficultyNotFound
		}
		return nil, fmt.Errorf("failed to get difficulty: %w", err)
	}

	return d, nil
}

// ListDifficulties returns all difficulties ordered by sort order.
func (r *LevelRepository) ListDifficulties(ctx context.Context) ([]level.Difficulty, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT id, name, base_score, sort_order FROM difficulties ORDER BY sort_order`)
	if err != nil {
		return nil, fmt.Errorf("failed to list difficulties: %w", err)
	}
	defer rows.Close()

	var diffs []level.Difficulty
	for rows.Next() {
		var d level.Difficulty
		if err := rows.Scan(&d.ID, &d.Name, &d.BaseScore, &d.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan difficulty: %w", err)
		}
		diffs = append(diffs, d)
	}

	return diffs, rows.Err()
}

// ListIDs returns the identifiers of every non-deleted level.
func (r *LevelRepository) ListIDs(ctx context.Context) ([]uint64, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT id FROM levels WHERE is_deleted = FALSE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list level ids: %w", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan level id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Likes and Votes
// ─────────────────────────────────────────────────────────────────────────────

// InsertLike records a like within the caller's transaction.
func (r *LevelRepository) InsertLike(ctx context.Context, q Querier, levelID, playerID uint64) error {
	_, err := q.Exec(ctx,
		`INSERT INTO level_likes (level_id, player_id) VALUES ($1, $2)`,
		levelID, playerID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrLikeExists
		}
		if IsForeignKeyViolation(err) {
			return shared.ErrLevelNotFound
		}
		return fmt.Errorf("failed to insert like: %w", err)
	}
	return nil
}

// DeleteLike removes a like within the caller's transaction.
func (r *LevelRepository) DeleteLike(ctx context.Context, q Querier, levelID, playerID uint64) error {
	tag, err := q.Exec(ctx,
		`DELETE FROM level_likes WHERE level_id = $1 AND player_id = $2`,
		levelID, playerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete like: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrLikeNotFound
	}
	return nil
}

// UpsertVote records or replaces a player's rating accuracy vote within the
// caller's transaction. One vote per player per (level, diff); a revote under
// the same difficulty overwrites, a vote after a rerate starts a new row while
// the old one drops out of the live average.
func (r *LevelRepository) UpsertVote(ctx context.Context, q Querier, v *level.RatingAccuracyVote) error {
	query := `
		INSERT INTO rating_accuracy_votes (level_id, player_id, diff_id, vote, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (level_id, player_id, diff_id) DO UPDATE SET
			vote = EXCLUDED.vote,
			created_at = EXCLUDED.created_at
		RETURNING id
	`

	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	err := q.QueryRow(ctx, query,
		v.LevelID, v.PlayerID, v.DiffID, v.Vote, v.CreatedAt,
	).Scan(&v.ID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return level.ErrVoteMissingReference
		}
		return fmt.Errorf("failed to upsert vote: %w", err)
	}
	return nil
}

// DeleteVote removes a player's vote within the caller's transaction.
func (r *LevelRepository) DeleteVote(ctx context.Context, q Querier, levelID, playerID uint64) error {
	tag, err := q.Exec(ctx,
		`DELETE FROM rating_accuracy_votes WHERE level_id = $1 AND player_id = $2`,
		levelID, playerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Counter Recalculation
// ─────────────────────────────────────────────────────────────────────────────

// RecalculateClears rewrites the clears counter from the current set of
// qualifying passes. Runs inside the caller's transaction so the counter
// commits together with the pass mutation that changed it.
func (r *LevelRepository) RecalculateClears(ctx context.Context, q Querier, levelID uint64) error {
	query := `
		UPDATE levels SET
			clears = (
				SELECT COUNT(*) FROM passes
				WHERE level_id = $1
				  AND NOT is_deleted AND NOT is_duplicate AND NOT is_hidden
			),
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, levelID)
	if err != nil {
		return fmt.Errorf("failed to recalculate clears: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrLevelNotFound
	}
	return nil
}

// RecalculateLikes rewrites the likes counter from the current like rows.
func (r *LevelRepository) RecalculateLikes(ctx context.Context, q Querier, levelID uint64) error {
	query := `
		UPDATE levels SET
			likes = (SELECT COUNT(*) FROM level_likes WHERE level_id = $1),
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, levelID)
	if err != nil {
		return fmt.Errorf("failed to recalculate likes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrLevelNotFound
	}
	return nil
}

// RecalculateRatingAccuracy rewrites the rating accuracy aggregate as the
// mean of votes cast for the level's current difficulty. Votes cast while
// the level carried a different difficulty do not count, and a level with
// no matching votes goes back to zero.
func (r *LevelRepository) RecalculateRatingAccuracy(ctx context.Context, q Querier, levelID uint64) error {
	query := `
		UPDATE levels l SET
			rating_accuracy = COALESCE((
				SELECT AVG(v.vote)
				FROM rating_accuracy_votes v
				WHERE v.level_id = l.id AND v.diff_id = l.diff_id
			), 0),
			updated_at = NOW()
		WHERE l.id = $1
	`

	tag, err := q.Exec(ctx, query, levelID)
	if err != nil {
		return fmt.Errorf("failed to recalculate rating accuracy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrLevelNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Audit
// ─────────────────────────────────────────────────────────────────────────────

// CounterDrift describes a level whose stored counters diverge from the
// values derivable from base tables.
type CounterDrift struct {
	LevelID        uint64
	StoredClears   int
	ActualClears   int
	StoredLikes    int
	ActualLikes    int
	StoredAccuracy float64
	ActualAccuracy float64
}

// AuditCounters compares stored counters against recomputed values for every
// aggregatable level and returns the drifted ones. Read-only; the caller
// decides whether to repair.
func (r *LevelRepository) AuditCounters(ctx context.Context) ([]CounterDrift, error) {
	query := `
		SELECT l.id, l.clears, expected.clears, l.likes, expected.likes,
			   l.rating_accuracy, expected.rating_accuracy
		FROM levels l
		CROSS JOIN LATERAL (
			SELECT
				(SELECT COUNT(*) FROM passes p
				 WHERE p.level_id = l.id
				   AND NOT p.is_deleted AND NOT p.is_duplicate AND NOT p.is_hidden) AS clears,
				(SELECT COUNT(*) FROM level_likes ll WHERE ll.level_id = l.id) AS likes,
				COALESCE((SELECT AVG(v.vote) FROM rating_accuracy_votes v
				          WHERE v.level_id = l.id AND v.diff_id = l.diff_id), 0) AS rating_accuracy
		) expected
		WHERE NOT l.is_deleted
		  AND (l.clears <> expected.clears
		       OR l.likes <> expected.likes
		       OR ABS(l.rating_accuracy - expected.rating_accuracy) > 1e-9)
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to audit level counters: %w", err)
	}
	defer rows.Close()

	var drifts []CounterDrift
	for rows.Next() {
		var d CounterDrift
		if err := rows.Scan(
			&d.LevelID,
			&d.StoredClears, &d.ActualClears,
			&d.StoredLikes, &d.ActualLikes,
			&d.StoredAccuracy, &d.ActualAccuracy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan counter drift: %w", err)
		}
		drifts = append(drifts, d)
	}

	return drifts, rows.Err()
}

// RepairCounters rewrites all three counters for one level in a single
// transaction. Used by the audit job after drift detection.
func (r *LevelRepository) RepairCounters(ctx context.Context, levelID uint64) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if err := r.RecalculateClears(ctx, tx, levelID); err != nil {
			return err
		}
		if err := r.RecalculateLikes(ctx, tx, levelID); err != nil {
			return err
		}
		return r.RecalculateRatingAccuracy(ctx, tx, levelID)
	})
}
