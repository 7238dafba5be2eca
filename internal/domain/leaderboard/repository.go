package leaderboard

import (
	"context"
)

// Repository описывает хранилище лидерборда поверх player_stats.
type Repository interface {
	// GetPage возвращает страницу лидерборда по нормализованному запросу.
	GetPage(ctx context.Context, q PageQuery) (*Page, error)

	// GetMaxFields возвращает текущие максимумы по фильтруемым метрикам.
	GetMaxFields(ctx context.Context) (*MaxFields, error)

	// ReassignRanks пересчитывает плотные ранги по метрике одним проходом
	// оконной функции. Идемпотентна: безопасно прервать и повторить.
	ReassignRanks(ctx context.Context, metric Metric) error
}

// Cache описывает кеш лидерборда с инвалидацией по тегам.
type Cache interface {
	// Get возвращает закешированное значение по ключу в dest.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set сохраняет значение и привязывает его к тегам.
	Set(ctx context.Context, key string, value interface{}, tags ...string) error

	// InvalidateTag удаляет все записи, привязанные к тегу.
	InvalidateTag(ctx context.Context, tag string) error
}

// TagAll - грубый тег, покрывающий все записи лидерборда. Любая запись,
// меняющая player_stats, инвалидирует весь тег: корректность важнее
// точечности, потому что инвалидация по комбинации параметров неподъёмна.
const TagAll = "leaderboard:all"
