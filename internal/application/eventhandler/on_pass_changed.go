// Package eventhandler содержит обработчики доменных событий.
// Обработчики - "реактивная" часть подсистемы: они запускаются after-commit
// на шине событий и выполняют асинхронную половину конвейера агрегации:
// пересчёт статистики игроков, переназначение рангов и сброс кеша выдачи.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tuforums/tuf-rankings/internal/application/command"
	"github.com/tuforums/tuf-rankings/internal/domain/leaderboard"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
)

// StatsRecomputer rebuilds one player's aggregated statistics.
type StatsRecomputer interface {
	Handle(ctx context.Context, cmd command.RecomputeStatsCommand) (*command.RecomputeStatsResult, error)
}

// ═══════════════════════════════════════════════════════════════════════════
// ON PASS CHANGED HANDLER
// Любое изменение прохождения устаревает статистику затронутых игроков,
// а вместе с ней ранги и все закешированные страницы лидерборда.
// ═══════════════════════════════════════════════════════════════════════════

// OnPassChangedHandler reacts to pass create/update/delete/restore events.
type OnPassChangedHandler struct {
	recomputer  StatsRecomputer
	leaderboard leaderboard.Repository
	cache       leaderboard.Cache
	logger      *slog.Logger
}

// NewOnPassChangedHandler creates a new OnPassChangedHandler.
func NewOnPassChangedHandler(
	recomputer StatsRecomputer,
	lb leaderboard.Repository,
	cache leaderboard.Cache,
	logger *slog.Logger,
) *OnPassChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnPassChangedHandler{
		recomputer:  recomputer,
		leaderboard: lb,
		cache:       cache,
		logger:      logger.With("handler", "on_pass_changed"),
	}
}

// Handle implements shared.EventHandler.
func (h *OnPassChangedHandler) Handle(ctx context.Context, event shared.Event) error {
	passEvent, ok := event.(*shared.PassChangedEvent)
	if !ok {
		h.logger.Warn("received non-PassChangedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing pass changed event",
		"event_type", passEvent.EventType(),
		"pass_id", passEvent.PassID,
		"level_id", passEvent.LevelID,
		"affected_players", len(passEvent.AffectedPlayerIDs),
	)

	// Пересчёт статистики: отказ одного игрока не блокирует остальных,
	// но помечает событие как неуспешное для метрик шины.
	var failed int
	for _, playerID := range passEvent.AffectedPlayerIDs {
		if _, err := h.recomputer.Handle(ctx, command.RecomputeStatsCommand{PlayerID: playerID}); err != nil {
			failed++
			h.logger.Error("stats recompute failed",
				"player_id", playerID,
				"error", err.Error(),
			)
		}
	}

	for _, metric := range leaderboard.AllMetrics() {
		if err := h.leaderboard.ReassignRanks(ctx, metric); err != nil {
			return fmt.Errorf("on_pass_changed: failed to reassign %s ranks: %w", metric, err)
		}
	}

	if err := h.cache.InvalidateTag(ctx, leaderboard.TagAll); err != nil {
		h.logger.Error("leaderboard cache invalidation failed",
			"error", err.Error(),
		)
	}

	if failed > 0 {
		return fmt.Errorf("on_pass_changed: %d of %d recomputes failed",
			failed, len(passEvent.AffectedPlayerIDs))
	}
	return nil
}
