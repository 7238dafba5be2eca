// Package level содержит доменную модель уровня (чарта) и его
// денормализованных счётчиков: лайков, среднего rating accuracy и числа
// прохождений. Здесь нет внешних зависимостей.
package level

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIFFICULTY
// ══════════════════════════════════════════════════════════════════════════════

// Difficulty представляет уровень сложности (rating tier).
type Difficulty struct {
	// ID - уникальный идентификатор сложности.
	ID uint64

	// Name - отображаемое имя сложности (например "U7").
	Name string

	// BaseScore - канонический базовый счёт для этой сложности.
	BaseScore float64

	// SortOrder - полный порядок сложностей; используется для сравнения
	// "какая сложность выше" и для tie-break'ов.
	SortOrder int
}

// IsHarderThan возвращает true, если сложность строго выше другой.
func (d Difficulty) IsHarderThan(other Difficulty) bool {
	return d.SortOrder > other.SortOrder
}

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Level представляет уровень (чарт), который проходят игроки.
type Level struct {
	// ID - уникальный идентификатор уровня.
	ID uint64

	// Song - название трека.
	Song string

	// Artist - исполнитель трека.
	Artist string

	// Creator - автор уровня.
	Creator string

	// DiffID - текущая сложность уровня. Меняется при rerate.
	DiffID uint64

	// BaseScore - базовый счёт уровня; nil или 0 означает
	// "использовать BaseScore сложности".
	BaseScore *float64

	// Clears - денормализованное число подходящих прохождений.
	Clears int

	// Likes - денормализованное число лайков.
	Likes int

	// RatingAccuracy - денормализованное среднее голосов за точность
	// рейтинга в рамках текущей сложности. 0 при отсутствии голосов.
	RatingAccuracy float64

	// IsDeleted - уровень удалён; исключается из всех агрегатов.
	IsDeleted bool

	// IsHidden - уровень скрыт; исключается из всех агрегатов.
	IsHidden bool

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего изменения записи.
	UpdatedAt time.Time
}

// IsAggregatable возвращает true, если прохождения уровня участвуют
// в агрегатах.
func (l *Level) IsAggregatable() bool {
	return !l.IsDeleted && !l.IsHidden
}

// EffectiveBaseScore возвращает действующий базовый счёт уровня:
// собственный BaseScore, если он задан и положителен, иначе BaseScore
// текущей сложности. Явная цепочка фолбэков вместо скрытого геттера.
func (l *Level) EffectiveBaseScore(diff Difficulty) float64 {
	if l.BaseScore != nil && *l.BaseScore > 0 {
		return *l.BaseScore
	}
	return diff.BaseScore
}

// ══════════════════════════════════════════════════════════════════════════════
// LIKES / VOTES
// ══════════════════════════════════════════════════════════════════════════════

// Like - один лайк уровня игроком. Уникальность пары (LevelID, PlayerID)
// обеспечивается хранилищем.
type Like struct {
	// LevelID - идентификатор уровня.
	LevelID uint64

	// PlayerID - идентификатор игрока.
	PlayerID uint64

	// CreatedAt - время лайка.
	CreatedAt time.Time
}

// Границы голоса за точность рейтинга.
const (
	// VoteMin - минимально допустимый голос.
	VoteMin = -5

	// VoteMax - максимально допустимый голос.
	VoteMax = 5
)

// RatingAccuracyVote - голос игрока за точность рейтинга уровня.
// Голос привязан к сложности на момент голосования: после rerate
// старые голоса не участвуют в живом среднем.
type RatingAccuracyVote struct {
	// ID - уникальный идентификатор голоса.
	ID uint64

	// LevelID - идентификатор уровня.
	LevelID uint64

	// PlayerID - идентификатор игрока.
	PlayerID uint64

	// DiffID - сложность уровня на момент голосования.
	DiffID uint64

	// Vote - целое в диапазоне [-5, 5].
	Vote int

	// CreatedAt - время голоса.
	CreatedAt time.Time
}

// Validate проверяет диапазон голоса.
func (v RatingAccuracyVote) Validate() error {
	if v.Vote < VoteMin || v.Vote > VoteMax {
		return ErrVoteOutOfRange
	}
	if v.LevelID == 0 || v.PlayerID == 0 || v.DiffID == 0 {
		return ErrVoteMissingReference
	}
	return nil
}
