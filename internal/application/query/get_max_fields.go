package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tuforums/tuf-rankings/internal/domain/leaderboard"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET MAX FIELDS QUERY
// Текущие максимумы по каждой фильтруемой метрике; клиенты калибруют по ним
// диапазонные слайдеры. Дорогой пятикратный MAX, поэтому ответ кешируется
// и сбрасывается вместе со всем лидербордом.
// ══════════════════════════════════════════════════════════════════════════════

// GetMaxFieldsHandler обрабатывает запрос максимумов метрик.
type GetMaxFieldsHandler struct {
	leaderboardRepo leaderboard.Repository
	cache           leaderboard.Cache
	logger          *slog.Logger
}

// NewGetMaxFieldsHandler создаёт новый обработчик запроса максимумов.
func NewGetMaxFieldsHandler(
	leaderboardRepo leaderboard.Repository,
	cache leaderboard.Cache,
	logger *slog.Logger,
) *GetMaxFieldsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetMaxFieldsHandler{
		leaderboardRepo: leaderboardRepo,
		cache:           cache,
		logger:          logger.With("query", "get_max_fields"),
	}
}

// Handle executes the max fields query.
func (h *GetMaxFieldsHandler) Handle(ctx context.Context) (*leaderboard.MaxFields, error) {
	var cached leaderboard.MaxFields
	if err := h.cache.Get(ctx, redis.MaxFieldsKey, &cached); err == nil {
		return &cached, nil
	}

	maxFields, err := h.leaderboardRepo.GetMaxFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_max_fields: %w", err)
	}

	if err := h.cache.Set(ctx, redis.MaxFieldsKey, maxFields, leaderboard.TagAll); err != nil {
		h.logger.Warn("max fields cache write failed",
			"error", err.Error(),
		)
	}

	return maxFields, nil
}
