// Package postgres implements the PostgreSQL persistence layer for the
// rankings service.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/tuforums/tuf-rankings/internal/domain/player"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PLAYER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PlayerRepository implements player.Repository and player.StatsRepository
// for PostgreSQL.
type PlayerRepository struct {
	conn *Connection
}

// NewPlayerRepository creates a new PlayerRepository.
func NewPlayerRepository(conn *Connection) *PlayerRepository {
	return &PlayerRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Players
// ─────────────────────────────────────────────────────────────────────────────

// GetByID returns a player by ID.
func (r *PlayerRepository) GetByID(ctx context.Context, id uint64) (*player.Player, error) {
	query := `
		SELECT id, name, country, is_banned, discord_id, discord_handle, created_at
		FROM players
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return scanPlayer(row)
}

// GetByDiscordID returns the player linked to an identity provider account.
func (r *PlayerRepository) GetByDiscordID(ctx context.Context, discordID uint64) (*player.Player, error) {
	query := `
		SELECT id, name, country, is_banned, discord_id, discord_handle, created_at
		FROM players
		WHERE discord_id = $1
	`

	row := r.conn.QueryRow(ctx, query, int64(discordID))
	p, err := scanPlayer(row)
	if err != nil {
		if IsNoRows(err) || err == shared.ErrPlayerNotFound {
			return nil, shared.ErrIdentityNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListIDs returns the IDs of all players.
func (r *PlayerRepository) ListIDs(ctx context.Context) ([]uint64, error) {
	rows, err := r.conn.Query(ctx, `SELECT id FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list player ids: %w", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan player id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func scanPlayer(row rowScanner) (*player.Player, error) {
	p := &player.Player{}
	var discordID *int64
	var discordHandle *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Country,
		&p.IsBanned,
		&discordID,
		&discordHandle,
		&p.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}

	if discordID != nil {
		p.DiscordID = uint64(*discordID)
	}
	if discordHandle != nil {
		p.DiscordHandle = *discordHandle
	}
	return p, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Player Stats
// ─────────────────────────────────────────────────────────────────────────────

const statsColumns = `
	player_id, ranked_score, general_score, pp_score, wf_score, score_12k,
	ranked_score_rank, general_score_rank, pp_score_rank, wf_score_rank, score_12k_rank,
	avg_xacc, universal_pass_count, worlds_first_count,
	top_diff_id, top_12k_diff_id, total_passes, last_updated
`

// GetStats returns the aggregated statistics of a player. A player without a
// stats row reads as zeroes rather than an error.
func (r *PlayerRepository) GetStats(ctx context.Context, playerID uint64) (player.Stats, error) {
	query := `SELECT ` + statsColumns + ` FROM player_stats WHERE player_id = $1`

	s := player.Stats{}
	err := r.conn.QueryRow(ctx, query, playerID).Scan(
		&s.PlayerID,
		&s.RankedScore,
		&s.GeneralScore,
		&s.PPScore,
		&s.WFScore,
		&s.Score12K,
		&s.RankedScoreRank,
		&s.GeneralScoreRank,
		&s.PPScoreRank,
		&s.WFScoreRank,
		&s.Score12KRank,
		&s.AverageXacc,
		&s.UniversalPassCount,
		&s.WorldsFirstCount,
		&s.TopDiffID,
		&s.Top12KDiffID,
		&s.TotalPasses,
		&s.LastUpdated,
	)
	if err != nil {
		if IsNoRows(err) {
			return player.ZeroStats(playerID), nil
		}
		return player.Stats{}, fmt.Errorf("failed to get player stats: %w", err)
	}

	return s, nil
}

// UpsertStats writes the recomputed statistics of a player. Rank columns are
// preserved on conflict: they belong to the bulk rank assigner, not to the
// per-player recompute path.
func (r *PlayerRepository) UpsertStats(ctx context.Context, s player.Stats) error {
	query := `
		INSERT INTO player_stats (
			player_id, ranked_score, general_score, pp_score, wf_score, score_12k,
			avg_xacc, universal_pass_count, worlds_first_count,
			top_diff_id, top_12k_diff_id, total_passes, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (player_id) DO UPDATE SET
			ranked_score = EXCLUDED.ranked_score,
			general_score = EXCLUDED.general_score,
			pp_score = EXCLUDED.pp_score,
			wf_score = EXCLUDED.wf_score,
			score_12k = EXCLUDED.score_12k,
			avg_xacc = EXCLUDED.avg_xacc,
			universal_pass_count = EXCLUDED.universal_pass_count,
			worlds_first_count = EXCLUDED.worlds_first_count,
			top_diff_id = EXCLUDED.top_diff_id,
			top_12k_diff_id = EXCLUDED.top_12k_diff_id,
			total_passes = EXCLUDED.total_passes,
			last_updated = EXCLUDED.last_updated
	`

	if s.LastUpdated.IsZero() {
		s.LastUpdated = time.Now().UTC()
	}

	_, err := r.conn.Exec(ctx, query,
		s.PlayerID,
		s.RankedScore,
		s.GeneralScore,
		s.PPScore,
		s.WFScore,
		s.Score12K,
		s.AverageXacc,
		s.UniversalPassCount,
		s.WorldsFirstCount,
		s.TopDiffID,
		s.Top12KDiffID,
		s.TotalPasses,
		s.LastUpdated,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrPlayerNotFound
		}
		return fmt.Errorf("failed to upsert player stats: %w", err)
	}

	return nil
}
