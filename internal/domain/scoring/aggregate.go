package scoring

import (
	"sort"

	"github.com/tuforums/tuf-rankings/internal/domain/pass"
)

// ══════════════════════════════════════════════════════════════════════════════
// PLAYER AGGREGATION
// ══════════════════════════════════════════════════════════════════════════════

// Summary - итог агрегации полного набора прохождений одного игрока:
// пять независимых сумм очков и побочные показатели.
type Summary struct {
	// RankedScore - затухающая сумма лучших прохождений.
	RankedScore float64

	// GeneralScore - сумма очков всех прохождений.
	GeneralScore float64

	// PPScore - сумма очков прохождений со 100% точностью.
	PPScore float64

	// WFScore - сумма базовых очков "world's first" прохождений.
	WFScore float64

	// Score12K - затухающая сумма лучших 12K-прохождений.
	Score12K float64

	// AverageXacc - средняя точность по окну лучших прохождений.
	AverageXacc float64

	// UniversalPassCount - прохождения на сложностях, засчитываемых
	// в общий счёт.
	UniversalPassCount int

	// WorldsFirstCount - прохождения с флагом "world's first".
	WorldsFirstCount int

	// TopDiffID - самая высокая сложность среди прохождений; 0 без них.
	TopDiffID uint64

	// Top12KDiffID - самая высокая сложность среди 12K-прохождений.
	Top12KDiffID uint64

	// TotalPasses - число зачтённых прохождений (по одному на уровень).
	TotalPasses int
}

// Aggregate пересчитывает итог по полному набору подходящих прохождений
// игрока. Пересчёт всегда полный, не инкрементальный: это дороже на запись,
// но устойчиво к массовым правкам и правкам задним числом.
//
// На уровне засчитывается только лучшее прохождение. Списки сортируются
// детерминированно: по убыванию очков, при равенстве - по возрастанию id.
func (c Config) Aggregate(passes []pass.QualifyingPass) Summary {
	var s Summary
	if len(passes) == 0 {
		return s
	}

	sorted := make([]pass.QualifyingPass, len(passes))
	copy(sorted, passes)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ScoreV2 != sorted[j].ScoreV2 {
			return sorted[i].ScoreV2 > sorted[j].ScoreV2
		}
		return sorted[i].PassID < sorted[j].PassID
	})

	// Лучшие прохождения: одно на уровень, в порядке убывания очков.
	seen := make(map[uint64]struct{}, len(sorted))
	best := sorted[:0:0]
	for _, p := range sorted {
		if _, ok := seen[p.LevelID]; ok {
			continue
		}
		seen[p.LevelID] = struct{}{}
		best = append(best, p)
	}
	s.TotalPasses = len(best)

	var (
		allScores  []float64
		accValues  []float64
		twelveKIdx int
	)
	for _, p := range best {
		allScores = append(allScores, p.ScoreV2)
		s.GeneralScore += p.ScoreV2

		if p.Accuracy != nil {
			if len(accValues) < c.AccWindow {
				accValues = append(accValues, *p.Accuracy)
			}
			if *p.Accuracy >= 1.0 {
				s.PPScore += p.ScoreV2
			}
		}

		if p.IsWorldsFirst {
			s.WFScore += p.BaseScore
		}

		if p.Is12K && twelveKIdx < c.TopWindow {
			s.Score12K += decayWeight(c.DecayFactor, twelveKIdx) * p.ScoreV2
			twelveKIdx++
		}

		if p.DiffSortOrder >= c.UniversalMinSortOrder {
			s.UniversalPassCount++
		}
	}

	s.RankedScore = c.DecayedSum(allScores)

	if len(accValues) > 0 {
		var sum float64
		for _, a := range accValues {
			sum += a
		}
		s.AverageXacc = sum / float64(len(accValues))
	}

	// WF-счётчик и топовые сложности считаются по всем подходящим
	// прохождениям, не только по лучшим на уровень.
	var topSort, top12kSort int
	for _, p := range passes {
		if p.IsWorldsFirst {
			s.WorldsFirstCount++
		}
		if p.DiffSortOrder > topSort {
			topSort = p.DiffSortOrder
			s.TopDiffID = p.DiffID
		}
		if p.Is12K && p.DiffSortOrder > top12kSort {
			top12kSort = p.DiffSortOrder
			s.Top12KDiffID = p.DiffID
		}
	}

	return s
}

// decayWeight возвращает DecayFactor^n.
func decayWeight(factor float64, n int) float64 {
	w := 1.0
	for i := 0; i < n; i++ {
		w *= factor
	}
	return w
}
