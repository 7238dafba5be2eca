package player

import (
	"context"
)

// Repository описывает хранилище игроков.
type Repository interface {
	// GetByID возвращает игрока по идентификатору.
	GetByID(ctx context.Context, id uint64) (*Player, error)

	// GetByDiscordID возвращает игрока, привязанного к аккаунту
	// identity-провайдера.
	GetByDiscordID(ctx context.Context, discordID uint64) (*Player, error)

	// ListIDs возвращает идентификаторы всех игроков.
	ListIDs(ctx context.Context) ([]uint64, error)
}

// StatsRepository описывает хранилище агрегированной статистики.
type StatsRepository interface {
	// GetStats возвращает статистику игрока; для игрока без строки
	// возвращает ZeroStats.
	GetStats(ctx context.Context, playerID uint64) (Stats, error)

	// UpsertStats записывает пересчитанную статистику игрока.
	UpsertStats(ctx context.Context, stats Stats) error
}
