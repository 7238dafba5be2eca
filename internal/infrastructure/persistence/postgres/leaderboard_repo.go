// Package postgres implements the PostgreSQL persistence layer for the
// rankings service.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tuforums/tuf-rankings/internal/domain/leaderboard"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRepository implements leaderboard.Repository over player_stats.
//
// Имена колонок в SQL берутся только из Metric.Column() после валидации
// белым списком; пользовательский ввод в текст запроса не попадает.
type LeaderboardRepository struct {
	conn *Connection
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(conn *Connection) *LeaderboardRepository {
	return &LeaderboardRepository{conn: conn}
}

const leaderboardColumns = `
	p.id, p.name, p.country, p.is_banned, p.discord_id, p.discord_handle, p.created_at,
	COALESCE(s.ranked_score, 0), COALESCE(s.general_score, 0), COALESCE(s.pp_score, 0),
	COALESCE(s.wf_score, 0), COALESCE(s.score_12k, 0),
	COALESCE(s.ranked_score_rank, 0), COALESCE(s.general_score_rank, 0),
	COALESCE(s.pp_score_rank, 0), COALESCE(s.wf_score_rank, 0), COALESCE(s.score_12k_rank, 0),
	COALESCE(s.avg_xacc, 0), COALESCE(s.universal_pass_count, 0),
	COALESCE(s.worlds_first_count, 0), COALESCE(s.top_diff_id, 0),
	COALESCE(s.top_12k_diff_id, 0), COALESCE(s.total_passes, 0),
	COALESCE(s.last_updated, p.created_at)
`

// GetPage returns a leaderboard page for a normalized query.
// Players without a stats row participate with zero scores.
func (r *LeaderboardRepository) GetPage(ctx context.Context, q leaderboard.PageQuery) (*leaderboard.Page, error) {
	if !q.SortBy.IsValid() {
		return nil, shared.ErrInvalidSortColumn
	}

	where, args := buildLeaderboardWhere(q)

	countQuery := `
		SELECT COUNT(*)
		FROM players p
		LEFT JOIN player_stats s ON s.player_id = p.id
	` + where

	var total int
	if err := r.conn.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count leaderboard rows: %w", err)
	}

	direction := "DESC"
	if q.Order == leaderboard.OrderAsc {
		direction = "ASC"
	}

	pageQuery := fmt.Sprintf(`
		SELECT %s
		FROM players p
		LEFT JOIN player_stats s ON s.player_id = p.id
		%s
		ORDER BY COALESCE(s.%s, 0) %s, p.id ASC
		LIMIT $%d OFFSET $%d
	`, leaderboardColumns, where, q.SortBy.Column(), direction, len(args)+1, len(args)+2)

	args = append(args, q.Limit, q.Offset)

	rows, err := r.conn.Query(ctx, pageQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard page: %w", err)
	}
	defer rows.Close()

	page := &leaderboard.Page{Total: total, Rows: make([]leaderboard.Row, 0, q.Limit)}
	for rows.Next() {
		row, err := scanLeaderboardRow(rows)
		if err != nil {
			return nil, err
		}
		page.Rows = append(page.Rows, *row)
	}

	return page, rows.Err()
}

// buildLeaderboardWhere assembles the WHERE clause from validated query
// parameters. Column names come exclusively from Metric.Column().
func buildLeaderboardWhere(q leaderboard.PageQuery) (string, []interface{}) {
	var conds []string
	var args []interface{}

	switch q.Banned {
	case leaderboard.BannedHide:
		conds = append(conds, "NOT p.is_banned")
	case leaderboard.BannedOnly:
		conds = append(conds, "p.is_banned")
	}

	if q.PlayerID != 0 {
		args = append(args, q.PlayerID)
		conds = append(conds, fmt.Sprintf("p.id = $%d", len(args)))
	}

	if q.NameQuery != "" {
		args = append(args, "%"+q.NameQuery+"%")
		conds = append(conds, fmt.Sprintf("p.name ILIKE $%d", len(args)))
	}

	// Deterministic ordering of filter conditions
	for _, metric := range leaderboard.AllMetrics() {
		f, ok := q.Filters[metric]
		if !ok {
			continue
		}
		f = f.Normalize()
		col := metric.Column()

		args = append(args, f.Min)
		conds = append(conds, fmt.Sprintf("COALESCE(s.%s, 0) >= $%d", col, len(args)))
		args = append(args, f.Max)
		conds = append(conds, fmt.Sprintf("COALESCE(s.%s, 0) <= $%d", col, len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanLeaderboardRow(row rowScanner) (*leaderboard.Row, error) {
	var out leaderboard.Row
	var discordID *int64
	var discordHandle *string

	err := row.Scan(
		&out.Player.ID,
		&out.Player.Name,
		&out.Player.Country,
		&out.Player.IsBanned,
		&discordID,
		&discordHandle,
		&out.Player.CreatedAt,
		&out.Stats.RankedScore,
		&out.Stats.GeneralScore,
		&out.Stats.PPScore,
		&out.Stats.WFScore,
		&out.Stats.Score12K,
		&out.Stats.RankedScoreRank,
		&out.Stats.GeneralScoreRank,
		&out.Stats.PPScoreRank,
		&out.Stats.WFScoreRank,
		&out.Stats.Score12KRank,
		&out.Stats.AverageXacc,
		&out.Stats.UniversalPassCount,
		&out.Stats.WorldsFirstCount,
		&out.Stats.TopDiffID,
		&out.Stats.Top12KDiffID,
		&out.Stats.TotalPasses,
		&out.Stats.LastUpdated,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
	}

	if discordID != nil {
		out.Player.DiscordID = uint64(*discordID)
	}
	if discordHandle != nil {
		out.Player.DiscordHandle = *discordHandle
	}
	out.Stats.PlayerID = out.Player.ID
	return &out, nil
}

// GetMaxFields returns the current maxima of every filterable metric.
func (r *LeaderboardRepository) GetMaxFields(ctx context.Context) (*leaderboard.MaxFields, error) {
	query := `
		SELECT COALESCE(MAX(ranked_score), 0),
			   COALESCE(MAX(general_score), 0),
			   COALESCE(MAX(pp_score), 0),
			   COALESCE(MAX(wf_score), 0),
			   COALESCE(MAX(score_12k), 0)
		FROM player_stats
	`

	m := &leaderboard.MaxFields{GeneratedAt: time.Now().UTC()}
	err := r.conn.QueryRow(ctx, query).Scan(
		&m.RankedScore,
		&m.GeneralScore,
		&m.PPScore,
		&m.WFScore,
		&m.Score12K,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get max fields: %w", err)
	}

	return m, nil
}

// ReassignRanks rewrites the dense rank column of one metric in a single
// window-function pass. Banned players are ranked like everyone else;
// visibility is a read-side concern. Idempotent: rerunning after a partial
// failure converges to the same assignment.
func (r *LeaderboardRepository) ReassignRanks(ctx context.Context, metric leaderboard.Metric) error {
	if !metric.IsValid() {
		return shared.ErrUnknownMetric
	}

	col := metric.Column()
	rankCol := metric.RankColumn()

	query := fmt.Sprintf(`
		UPDATE player_stats s SET %s = ranked.new_rank
		FROM (
			SELECT player_id,
				   DENSE_RANK() OVER (ORDER BY %s DESC) AS new_rank
			FROM player_stats
		) ranked
		WHERE s.player_id = ranked.player_id
		  AND s.%s <> ranked.new_rank
	`, rankCol, col, rankCol)

	if _, err := r.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to reassign %s ranks: %w", metric, err)
	}

	return nil
}
