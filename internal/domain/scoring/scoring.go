// Package scoring реализует подключаемые функции подсчёта очков.
// Формулы управляются конфигурацией: кривые штрафов, коэффициент затухания
// и размеры окон задаются извне, а значения по умолчанию воспроизводят
// действующие константы платформы.
package scoring

import (
	"errors"
	"math"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config содержит все константы скоринга.
type Config struct {
	// GraceTiles - на каждые столько тайлов прощается один промах.
	GraceTiles int

	// MissWindowStart - нижняя граница окна штрафной кривой (в промахах).
	MissWindowStart float64

	// MissWindowEnd - верхняя граница окна штрафной кривой.
	MissWindowEnd float64

	// StartDeduction - штраф в процентах на нижней границе окна.
	StartDeduction float64

	// EndDeduction - штраф в процентах на верхней границе окна.
	EndDeduction float64

	// MissCurvePower - показатель степени штрафной кривой.
	MissCurvePower float64

	// NoMissBonus - множитель за прохождение без промахов.
	NoMissBonus float64

	// NoHoldPenalty - множитель за прохождение без удержаний.
	NoHoldPenalty float64

	// DecayFactor - коэффициент затухания для rankedScore и score12K.
	DecayFactor float64

	// TopWindow - сколько лучших прохождений входит в затухающую сумму.
	TopWindow int

	// AccWindow - сколько лучших прохождений входит в среднюю точность.
	AccWindow int

	// UniversalMinSortOrder - минимальный SortOrder сложности, с которого
	// прохождение засчитывается в universalPassCount.
	UniversalMinSortOrder int
}

// DefaultConfig возвращает действующие константы платформы.
func DefaultConfig() Config {
	return Config{
		GraceTiles:            315,
		MissWindowStart:       1,
		MissWindowEnd:         50,
		StartDeduction:        10,
		EndDeduction:          50,
		MissCurvePower:        0.7,
		NoMissBonus:           1.1,
		NoHoldPenalty:         0.9,
		DecayFactor:           0.9,
		TopWindow:             20,
		AccWindow:             20,
		UniversalMinSortOrder: 41,
	}
}

// Validate проверяет согласованность констант.
func (c Config) Validate() error {
	if c.GraceTiles <= 0 {
		return errors.New("scoring: grace tiles must be positive")
	}
	if c.MissWindowEnd <= c.MissWindowStart {
		return errors.New("scoring: miss window end must exceed start")
	}
	if c.DecayFactor <= 0 || c.DecayFactor > 1 {
		return errors.New("scoring: decay factor must be in (0, 1]")
	}
	if c.TopWindow <= 0 || c.AccWindow <= 0 {
		return errors.New("scoring: score windows must be positive")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MULTIPLIERS
// ══════════════════════════════════════════════════════════════════════════════

// Пороговые значения множителя точности.
const (
	xaccNeutralBelow = 0.95
	xaccPerfectMtp   = 10.0
)

// XaccMultiplier возвращает множитель точности для xacc из [0, 1].
// Ниже 95% точность не влияет на очки; идеальное прохождение даёт x10.
func XaccMultiplier(xacc float64) float64 {
	switch {
	case xacc < xaccNeutralBelow:
		return 1
	case xacc >= 1:
		return xaccPerfectMtp
	default:
		return -0.027/(xacc-1.0054) + 0.513
	}
}

// SpeedMultiplier возвращает множитель скорости по кусочной кривой.
// Замедления обнуляют очки; небольшие ускорения штрафуются.
func SpeedMultiplier(speed float64) float64 {
	switch {
	case speed == 0 || speed == 1:
		return 1
	case speed < 1:
		return 0
	case speed < 1.1:
		return -3.5*speed + 4.5
	case speed < 1.5:
		return 0.65
	case speed < 2:
		return 0.7*speed - 0.4
	default:
		return 1
	}
}

// InverseSpeedMultiplier - специальная кривая для уровней, где замедление
// является усложнением: ускорение линейно гасит очки.
func InverseSpeedMultiplier(speed float64) float64 {
	switch {
	case speed == 0 || speed == 1:
		return 1
	case speed > 1:
		return 2 - speed
	default:
		return 0
	}
}

// MissMultiplier возвращает множитель за промахи: без промахов - бонус,
// далее штраф растёт по степенной кривой до насыщения.
func (c Config) MissMultiplier(tiles, misses int) float64 {
	if misses == 0 {
		return c.NoMissBonus
	}

	adjusted := float64(misses) - math.Floor(float64(tiles)/float64(c.GraceTiles))
	if adjusted <= 0 {
		return 1
	}

	start := c.MissWindowStart
	end := c.MissWindowEnd
	mid := (start + end) / 2
	startDeduc := c.StartDeduction
	endDeduc := c.EndDeduction
	midDeduc := (startDeduc + endDeduc) / 2

	switch {
	case adjusted <= start:
		return 1 - startDeduc/100
	case adjusted <= mid:
		k := math.Pow((adjusted-start)/(mid-start), c.MissCurvePower) * (midDeduc - startDeduc) / 100
		return 1 - startDeduc/100 - k
	case adjusted <= end:
		k := math.Pow((end-adjusted)/(end-mid), c.MissCurvePower) * (endDeduc - midDeduc) / 100
		return 1 + k - endDeduc/100
	default:
		return 1 - endDeduc/100
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORE V2
// ══════════════════════════════════════════════════════════════════════════════

// PassInput - входные данные для подсчёта очков одного прохождения.
type PassInput struct {
	// BaseScore - эффективный базовый счёт уровня.
	BaseScore float64

	// Xacc - взвешенная точность прохождения.
	Xacc float64

	// Speed - множитель скорости.
	Speed float64

	// Tiles - число тайлов для кривой промахов.
	Tiles int

	// Misses - число промахов.
	Misses int

	// NoHoldTap - прохождение без удержаний.
	NoHoldTap bool

	// InverseSpeedCurve - уровень со специальной кривой скорости.
	InverseSpeedCurve bool
}

// ScoreV2 вычисляет очки прохождения по актуальной формуле.
func (c Config) ScoreV2(in PassInput) float64 {
	xaccMtp := XaccMultiplier(in.Xacc)

	var base float64
	if in.InverseSpeedCurve {
		base = math.Max(in.BaseScore*xaccMtp*InverseSpeedMultiplier(in.Speed), 1)
	} else {
		base = in.BaseScore * xaccMtp * SpeedMultiplier(in.Speed)
	}

	score := base * c.MissMultiplier(in.Tiles, in.Misses)
	if in.NoHoldTap {
		score *= c.NoHoldPenalty
	}
	return score
}

// DecayedSum возвращает затухающую сумму по убывающему списку очков:
// первое значение с весом 1, каждое следующее с весом DecayFactor^n,
// не более TopWindow слагаемых. Список должен быть отсортирован по убыванию.
func (c Config) DecayedSum(scores []float64) float64 {
	top := c.TopWindow
	if len(scores) < top {
		top = len(scores)
	}

	var sum float64
	weight := 1.0
	for n := 0; n < top; n++ {
		sum += weight * scores[n]
		weight *= c.DecayFactor
	}
	return sum
}
