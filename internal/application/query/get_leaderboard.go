// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tuforums/tuf-rankings/internal/domain/leaderboard"
	"github.com/tuforums/tuf-rankings/internal/domain/player"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/external/identity"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Страница лидерборда: сортировка по одной из пяти метрик, фильтры по
// имени, статусу бана и числовым диапазонам, точечный identity-поиск
// через сигилы "#" и "@". Ответ кешируется с тегом leaderboard:all.
// ══════════════════════════════════════════════════════════════════════════════

// IdentityResolver maps identity-provider accounts to users.
type IdentityResolver interface {
	LookupByID(ctx context.Context, id uint64) (*identity.User, error)
	LookupByHandle(ctx context.Context, handle string) (*identity.User, error)
}

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	// SortBy - метрика сортировки; пустая строка = rankedScore.
	SortBy string

	// Order - "asc" или "desc"; пустая строка = desc.
	Order string

	// ShowBanned - "show", "hide" или "only"; пустая строка = hide.
	ShowBanned string

	// NameQuery - поиск: подстрока имени, "#<id>" или "@<handle>".
	NameQuery string

	// Filters - диапазоны по метрикам, ключ = имя метрики.
	Filters map[string]leaderboard.RangeFilter

	// Offset - смещение страницы; отрицательное поднимается до 0.
	Offset int

	// Limit - размер страницы; приводится к [1, 100], 0 = 20.
	Limit int
}

// normalize validates the raw query and produces the storage-level query.
func (q GetLeaderboardQuery) normalize() (leaderboard.PageQuery, error) {
	sortBy := leaderboard.Metric(q.SortBy)
	if q.SortBy == "" {
		sortBy = leaderboard.MetricRankedScore
	}
	if !sortBy.IsValid() {
		return leaderboard.PageQuery{}, shared.ErrInvalidSortColumn
	}

	order := leaderboard.Order(q.Order)
	if q.Order == "" {
		order = leaderboard.OrderDesc
	}
	if !order.IsValid() {
		return leaderboard.PageQuery{}, shared.ErrInvalidSortOrder
	}

	banned := leaderboard.BannedMode(q.ShowBanned)
	if q.ShowBanned == "" {
		banned = leaderboard.BannedHide
	}
	if !banned.IsValid() {
		return leaderboard.PageQuery{}, shared.ErrInvalidBannedMode
	}

	filters := make(map[leaderboard.Metric]leaderboard.RangeFilter, len(q.Filters))
	for name, f := range q.Filters {
		metric := leaderboard.Metric(name)
		if !metric.IsValid() {
			return leaderboard.PageQuery{}, shared.ErrInvalidFilter
		}
		filters[metric] = f.Normalize()
	}

	return leaderboard.PageQuery{
		SortBy:  sortBy,
		Order:   order,
		Banned:  banned,
		Filters: filters,
		Offset:  leaderboard.ClampOffset(q.Offset),
		Limit:   leaderboard.ClampLimit(q.Limit),
	}, nil
}

// PlayerDTO - строка выдачи лидерборда.
type PlayerDTO struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Banned  bool   `json:"banned"`

	RankedScore  float64 `json:"rankedScore"`
	GeneralScore float64 `json:"generalScore"`
	PPScore      float64 `json:"ppScore"`
	WFScore      float64 `json:"wfScore"`
	Score12K     float64 `json:"score12K"`

	RankedScoreRank  int `json:"rankedScoreRank"`
	GeneralScoreRank int `json:"generalScoreRank"`
	PPScoreRank      int `json:"ppScoreRank"`
	WFScoreRank      int `json:"wfScoreRank"`
	Score12KRank     int `json:"score12KRank"`

	AverageXacc        float64 `json:"averageXacc"`
	UniversalPassCount int     `json:"universalPassCount"`
	WorldsFirstCount   int     `json:"worldsFirstCount"`
	TopDiffID          uint64  `json:"topDiffId"`
	Top12KDiffID       uint64  `json:"top12kDiffId"`
	TotalPasses        int     `json:"totalPasses"`

	LastUpdated time.Time `json:"lastUpdated"`
}

// GetLeaderboardResult содержит результат запроса лидерборда.
type GetLeaderboardResult struct {
	// Total - число строк под всеми фильтрами, до пагинации.
	Total int `json:"total"`

	// Players - строки текущей страницы.
	Players []PlayerDTO `json:"players"`
}

// GetLeaderboardHandler обрабатывает запросы страницы лидерборда.
type GetLeaderboardHandler struct {
	leaderboardRepo leaderboard.Repository
	playerRepo      player.Repository
	identityClient  IdentityResolver
	cache           leaderboard.Cache
	logger          *slog.Logger
}

// NewGetLeaderboardHandler создаёт новый обработчик запроса лидерборда.
func NewGetLeaderboardHandler(
	leaderboardRepo leaderboard.Repository,
	playerRepo player.Repository,
	identityClient IdentityResolver,
	cache leaderboard.Cache,
	logger *slog.Logger,
) *GetLeaderboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetLeaderboardHandler{
		leaderboardRepo: leaderboardRepo,
		playerRepo:      playerRepo,
		identityClient:  identityClient,
		cache:           cache,
		logger:          logger.With("query", "get_leaderboard"),
	}
}

// Handle executes the leaderboard query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	pq, err := q.normalize()
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: %w", err)
	}

	if err := h.resolveSearch(ctx, q.NameQuery, &pq); err != nil {
		if errors.Is(err, shared.ErrIdentityNotFound) || errors.Is(err, identity.ErrUserNotFound) {
			// Точечный identity-поиск без совпадения: пустая страница.
			return &GetLeaderboardResult{Total: 0, Players: []PlayerDTO{}}, nil
		}
		return nil, fmt.Errorf("get_leaderboard: %w", err)
	}

	key := redis.PageKey(cacheParams(pq))
	var cached GetLeaderboardResult
	if err := h.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	page, err := h.leaderboardRepo.GetPage(ctx, pq)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: failed to get page: %w", err)
	}

	result := &GetLeaderboardResult{
		Total:   page.Total,
		Players: make([]PlayerDTO, 0, len(page.Rows)),
	}
	for _, row := range page.Rows {
		result.Players = append(result.Players, toPlayerDTO(row))
	}

	if err := h.cache.Set(ctx, key, result, leaderboard.TagAll); err != nil {
		h.logger.Warn("leaderboard cache write failed",
			"key", key,
			"error", err.Error(),
		)
	}

	return result, nil
}

// resolveSearch interprets the search string. A "#" sigil addresses an
// identity-provider account ID, "@" addresses a handle; both resolve to the
// linked player and bypass the name filter. Anything else is a
// case-insensitive name substring.
func (h *GetLeaderboardHandler) resolveSearch(ctx context.Context, search string, pq *leaderboard.PageQuery) error {
	search = strings.TrimSpace(search)
	if search == "" {
		return nil
	}

	switch {
	case strings.HasPrefix(search, "#"):
		discordID, err := strconv.ParseUint(search[1:], 10, 64)
		if err != nil {
			return shared.ErrIdentityNotFound
		}
		return h.bindIdentity(ctx, discordID, pq)

	case strings.HasPrefix(search, "@"):
		handle := search[1:]
		if handle == "" {
			return shared.ErrIdentityNotFound
		}
		user, err := h.identityClient.LookupByHandle(ctx, handle)
		if err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				return shared.ErrIdentityNotFound
			}
			// Провайдер недоступен: деградируем до поиска по имени,
			// чтобы выдача не зависела от внешнего сервиса.
			h.logger.Warn("identity lookup degraded to name search",
				"handle", handle,
				"error", err.Error(),
			)
			pq.NameQuery = handle
			return nil
		}
		return h.bindIdentity(ctx, user.ID, pq)

	default:
		pq.NameQuery = search
		return nil
	}
}

// bindIdentity pins the query to the player linked to the given provider
// account.
func (h *GetLeaderboardHandler) bindIdentity(ctx context.Context, discordID uint64, pq *leaderboard.PageQuery) error {
	p, err := h.playerRepo.GetByDiscordID(ctx, discordID)
	if err != nil {
		return err
	}
	pq.PlayerID = p.ID
	return nil
}

// cacheParams renders the normalized query as canonical key components.
func cacheParams(pq leaderboard.PageQuery) map[string]string {
	params := map[string]string{
		"sortBy":     string(pq.SortBy),
		"order":      string(pq.Order),
		"showBanned": string(pq.Banned),
		"query":      pq.NameQuery,
		"offset":     strconv.Itoa(pq.Offset),
		"limit":      strconv.Itoa(pq.Limit),
	}
	if pq.PlayerID != 0 {
		params["playerId"] = strconv.FormatUint(pq.PlayerID, 10)
	}
	for _, metric := range leaderboard.AllMetrics() {
		if f, ok := pq.Filters[metric]; ok {
			params["f."+string(metric)] = fmt.Sprintf("%g..%g", f.Min, f.Max)
		}
	}
	return params
}

// toPlayerDTO flattens a leaderboard row for transport.
func toPlayerDTO(row leaderboard.Row) PlayerDTO {
	return PlayerDTO{
		ID:      row.Player.ID,
		Name:    row.Player.Name,
		Country: row.Player.Country,
		Banned:  row.Player.IsBanned,

		RankedScore:  row.Stats.RankedScore,
		GeneralScore: row.Stats.GeneralScore,
		PPScore:      row.Stats.PPScore,
		WFScore:      row.Stats.WFScore,
		Score12K:     row.Stats.Score12K,

		RankedScoreRank:  row.Stats.RankedScoreRank,
		GeneralScoreRank: row.Stats.GeneralScoreRank,
		PPScoreRank:      row.Stats.PPScoreRank,
		WFScoreRank:      row.Stats.WFScoreRank,
		Score12KRank:     row.Stats.Score12KRank,

		AverageXacc:        row.Stats.AverageXacc,
		UniversalPassCount: row.Stats.UniversalPassCount,
		WorldsFirstCount:   row.Stats.WorldsFirstCount,
		TopDiffID:          row.Stats.TopDiffID,
		Top12KDiffID:       row.Stats.Top12KDiffID,
		TotalPasses:        row.Stats.TotalPasses,

		LastUpdated: row.Stats.LastUpdated,
	}
}
