package eventhandler

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/tuforums/tuf-rankings/internal/domain/leaderboard"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
)

// levelTag returns the cache tag covering one level's cached payloads.
// Соседние подсистемы, разделяющие кеш, тегируют этим значением свои
// ответы про уровень; для незанятого тега инвалидация безвредна.
func levelTag(levelID uint64) string {
	return "level:" + strconv.FormatUint(levelID, 10)
}

// ═══════════════════════════════════════════════════════════════════════════
// ON VOTE CHANGED HANDLER
// Живое среднее уже пересчитано в транзакции записи; здесь остаётся
// только выбросить устаревшие закешированные ответы об уровне.
// ═══════════════════════════════════════════════════════════════════════════

// OnVoteChangedHandler reacts to rating-accuracy vote writes.
type OnVoteChangedHandler struct {
	cache  leaderboard.Cache
	logger *slog.Logger
}

// NewOnVoteChangedHandler creates a new OnVoteChangedHandler.
func NewOnVoteChangedHandler(cache leaderboard.Cache, logger *slog.Logger) *OnVoteChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnVoteChangedHandler{
		cache:  cache,
		logger: logger.With("handler", "on_vote_changed"),
	}
}

// Handle implements shared.EventHandler.
func (h *OnVoteChangedHandler) Handle(ctx context.Context, event shared.Event) error {
	voteEvent, ok := event.(*shared.VoteChangedEvent)
	if !ok {
		h.logger.Warn("received non-VoteChangedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing vote changed event",
		"level_id", voteEvent.LevelID,
		"diff_id", voteEvent.DiffID,
	)

	return h.cache.InvalidateTag(ctx, levelTag(voteEvent.LevelID))
}
