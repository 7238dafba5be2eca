// Package player содержит доменную модель игрока и его агрегированной
// статистики. PlayerStats - это кеш, полностью выводимый из текущего набора
// прохождений игрока; строка никогда не является первичным источником.
package player

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PLAYER ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Player представляет игрока платформы.
type Player struct {
	// ID - уникальный идентификатор игрока.
	ID uint64

	// Name - отображаемое имя игрока.
	Name string

	// Country - код страны игрока.
	Country string

	// IsBanned - игрок забанен. Забаненные игроки участвуют в расчёте
	// рангов, но фильтруются на чтении по параметру showBanned.
	IsBanned bool

	// DiscordID - идентификатор привязанного аккаунта внешнего
	// identity-провайдера; 0, если аккаунт не привязан.
	DiscordID uint64

	// DiscordHandle - имя пользователя у identity-провайдера.
	DiscordHandle string

	// CreatedAt - время создания записи.
	CreatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// PLAYER STATS
// ══════════════════════════════════════════════════════════════════════════════

// Stats - агрегированная статистика игрока: пять независимых сумм очков,
// их ранги и побочные показатели. Разделяет первичный ключ с Player.
type Stats struct {
	// PlayerID - идентификатор игрока (общий первичный ключ).
	PlayerID uint64

	// RankedScore - затухающая сумма лучших прохождений.
	RankedScore float64

	// GeneralScore - сумма очков всех прохождений.
	GeneralScore float64

	// PPScore - сумма очков прохождений со 100% точностью.
	PPScore float64

	// WFScore - сумма базовых очков прохождений "world's first".
	WFScore float64

	// Score12K - затухающая сумма лучших прохождений в режиме 12K.
	Score12K float64

	// RankedScoreRank - ранг по RankedScore (1 = лучший).
	RankedScoreRank int

	// GeneralScoreRank - ранг по GeneralScore.
	GeneralScoreRank int

	// PPScoreRank - ранг по PPScore.
	PPScoreRank int

	// WFScoreRank - ранг по WFScore.
	WFScoreRank int

	// Score12KRank - ранг по Score12K.
	Score12KRank int

	// AverageXacc - средняя точность по окну лучших прохождений.
	AverageXacc float64

	// UniversalPassCount - число прохождений, засчитываемых в общий счёт.
	UniversalPassCount int

	// WorldsFirstCount - число прохождений с флагом "world's first".
	WorldsFirstCount int

	// TopDiffID - сложность с максимальным SortOrder среди прохождений;
	// 0, если подходящих прохождений нет.
	TopDiffID uint64

	// Top12KDiffID - то же, но только среди прохождений в режиме 12K.
	Top12KDiffID uint64

	// TotalPasses - общее число подходящих прохождений (по одному на уровень).
	TotalPasses int

	// LastUpdated - время последнего пересчёта.
	LastUpdated time.Time
}

// ZeroStats возвращает обнулённую статистику для игрока без строки
// в хранилище: отсутствующий агрегат читается как нули, а не ошибка.
func ZeroStats(playerID uint64) Stats {
	return Stats{PlayerID: playerID}
}
