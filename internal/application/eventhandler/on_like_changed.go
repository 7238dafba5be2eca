package eventhandler

import (
	"context"
	"log/slog"

	"github.com/tuforums/tuf-rankings/internal/domain/leaderboard"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON LIKE CHANGED HANDLER
// Счётчик лайков уже пересчитан в транзакции записи; лайки не влияют на
// статистику игроков, поэтому единственное последствие - сброс кеша уровня.
// ═══════════════════════════════════════════════════════════════════════════

// OnLikeChangedHandler reacts to like toggles.
type OnLikeChangedHandler struct {
	cache  leaderboard.Cache
	logger *slog.Logger
}

// NewOnLikeChangedHandler creates a new OnLikeChangedHandler.
func NewOnLikeChangedHandler(cache leaderboard.Cache, logger *slog.Logger) *OnLikeChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnLikeChangedHandler{
		cache:  cache,
		logger: logger.With("handler", "on_like_changed"),
	}
}

// Handle implements shared.EventHandler.
func (h *OnLikeChangedHandler) Handle(ctx context.Context, event shared.Event) error {
	likeEvent, ok := event.(*shared.LikeChangedEvent)
	if !ok {
		h.logger.Warn("received non-LikeChangedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing like changed event",
		"level_id", likeEvent.LevelID,
	)

	return h.cache.InvalidateTag(ctx, levelTag(likeEvent.LevelID))
}
