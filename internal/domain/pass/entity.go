// Package pass содержит доменную модель прохождения уровня (clear).
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
// Прохождение - это единица, из которой строятся все агрегаты системы:
// очки игрока, ранги, "world's first" и счётчики уровня.
package pass

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ID представляет уникальный идентификатор прохождения.
type ID uint64

// IsValid проверяет, что ID положительный.
func (id ID) IsValid() bool {
	return id > 0
}

// Speed представляет множитель скорости, с которым пройден уровень.
// 1.0 - обычная скорость; значение 0 трактуется как 1.0.
type Speed float64

// Normalize возвращает 1.0 вместо нулевой скорости.
func (s Speed) Normalize() Speed {
	if s == 0 {
		return 1.0
	}
	return s
}

// IsValid проверяет, что скорость неотрицательная.
func (s Speed) IsValid() bool {
	return s >= 0
}

// ══════════════════════════════════════════════════════════════════════════════
// JUDGEMENT
// ══════════════════════════════════════════════════════════════════════════════

// Judgement хранит семь счётчиков точности нажатий одного прохождения.
// Judgement авторитетен: поле accuracy на Pass - лишь зеркальная копия.
// Разделяет первичный ключ с Pass (отношение 1:1).
type Judgement struct {
	// PassID - идентификатор прохождения (общий первичный ключ).
	PassID ID

	// EarlyDouble - сильно ранние нажатия.
	EarlyDouble int

	// EarlySingle - ранние нажатия.
	EarlySingle int

	// EPerfect - чуть ранние нажатия.
	EPerfect int

	// Perfect - идеальные нажатия.
	Perfect int

	// LPerfect - чуть поздние нажатия.
	LPerfect int

	// LateSingle - поздние нажатия.
	LateSingle int

	// LateDouble - сильно поздние нажатия.
	LateDouble int
}

// Веса бакетов точности: perfect = 1, около-perfect = 0.75,
// single = 0.4, double = 0.2.
const (
	weightPerfect     = 1.0
	weightNearPerfect = 0.75
	weightSingle      = 0.4
	weightDouble      = 0.2
)

// fallbackAccuracy возвращается для прохождений без корректных судейских данных.
const fallbackAccuracy = 0.95

// Validate проверяет, что все счётчики неотрицательные.
func (j Judgement) Validate() error {
	counts := [...]int{
		j.EarlyDouble, j.EarlySingle, j.EPerfect, j.Perfect,
		j.LPerfect, j.LateSingle, j.LateDouble,
	}
	for _, c := range counts {
		if c < 0 {
			return ErrNegativeJudgement
		}
	}
	return nil
}

// Total возвращает общее число нажатий.
func (j Judgement) Total() int {
	return j.EarlyDouble + j.EarlySingle + j.EPerfect + j.Perfect +
		j.LPerfect + j.LateSingle + j.LateDouble
}

// Misses возвращает число промахов (сильно ранние нажатия).
func (j Judgement) Misses() int {
	return j.EarlyDouble
}

// TileCount возвращает число тайлов, учитываемое кривой штрафа за промахи:
// все нажатия, кроме крайних бакетов.
func (j Judgement) TileCount() int {
	return j.EarlySingle + j.EPerfect + j.Perfect + j.LPerfect + j.LateSingle
}

// Accuracy вычисляет взвешенную точность (Xacc) по семи бакетам.
// Прохождение без единого нажатия получает запасное значение 0.95.
func (j Judgement) Accuracy() float64 {
	total := j.Total()
	if total <= 0 {
		return fallbackAccuracy
	}
	weighted := float64(j.Perfect)*weightPerfect +
		float64(j.EPerfect+j.LPerfect)*weightNearPerfect +
		float64(j.EarlySingle+j.LateSingle)*weightSingle +
		float64(j.EarlyDouble+j.LateDouble)*weightDouble
	return weighted / float64(total)
}

// ══════════════════════════════════════════════════════════════════════════════
// PASS ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Pass представляет одно зафиксированное прохождение уровня игроком.
type Pass struct {
	// ID - уникальный идентификатор прохождения.
	ID ID

	// LevelID - идентификатор пройденного уровня.
	LevelID uint64

	// PlayerID - идентификатор игрока.
	PlayerID uint64

	// ScoreV2 - числовая оценка прохождения по актуальной формуле.
	ScoreV2 float64

	// Accuracy - зеркальная копия Judgement.Accuracy (не авторитетна).
	// nil, если судейские данные отсутствуют.
	Accuracy *float64

	// Speed - множитель скорости прохождения.
	Speed Speed

	// Is12K - прохождение в режиме 12K.
	Is12K bool

	// Is16K - прохождение в режиме 16K.
	Is16K bool

	// IsNoHoldTap - прохождение без удержаний.
	IsNoHoldTap bool

	// IsWorldsFirst - флаг "world's first": не более одного true на уровень
	// среди неудалённых прохождений. Меняется только резолвером.
	IsWorldsFirst bool

	// IsDeleted - мягкое удаление модератором.
	IsDeleted bool

	// IsDuplicate - прохождение помечено как дубликат.
	IsDuplicate bool

	// IsHidden - прохождение скрыто.
	IsHidden bool

	// VidUploadTime - время загрузки видео; хронологический ключ для
	// определения "world's first".
	VidUploadTime time.Time

	// VidLink - ссылка на видео прохождения.
	VidLink string

	// FeelingRating - субъективная оценка сложности от игрока.
	FeelingRating string

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего изменения записи.
	UpdatedAt time.Time
}

// IsQualifying возвращает true, если прохождение участвует в агрегатах:
// не удалено, не дубликат и не скрыто.
func (p *Pass) IsQualifying() bool {
	return !p.IsDeleted && !p.IsDuplicate && !p.IsHidden
}

// Validate проверяет инварианты прохождения.
func (p *Pass) Validate() error {
	if p.LevelID == 0 || p.PlayerID == 0 {
		return ErrMissingReference
	}
	if !p.Speed.IsValid() {
		return ErrInvalidSpeed
	}
	if p.VidUploadTime.IsZero() {
		return ErrMissingUploadTime
	}
	return nil
}
