package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tuforums/tuf-rankings/internal/domain/pass"
)

func acc(v float64) *float64 { return &v }

func TestAggregate_Empty(t *testing.T) {
	s := DefaultConfig().Aggregate(nil)
	assert.Equal(t, Summary{}, s)
}

func TestAggregate_BestPassPerLevel(t *testing.T) {
	cfg := DefaultConfig()

	// Два прохождения одного уровня: засчитывается только лучшее.
	s := cfg.Aggregate([]pass.QualifyingPass{
		{PassID: 1, LevelID: 10, ScoreV2: 100, Accuracy: acc(0.98)},
		{PassID: 2, LevelID: 10, ScoreV2: 250, Accuracy: acc(0.99)},
	})

	assert.Equal(t, 1, s.TotalPasses)
	assert.InDelta(t, 250, s.GeneralScore, 1e-9)
	assert.InDelta(t, 250, s.RankedScore, 1e-9)
	assert.InDelta(t, 0.99, s.AverageXacc, 1e-9)
}

func TestAggregate_RankedScoreDecay(t *testing.T) {
	cfg := DefaultConfig()

	s := cfg.Aggregate([]pass.QualifyingPass{
		{PassID: 1, LevelID: 1, ScoreV2: 100},
		{PassID: 2, LevelID: 2, ScoreV2: 50},
		{PassID: 3, LevelID: 3, ScoreV2: 10},
	})

	// 100 + 0.9*50 + 0.81*10.
	assert.InDelta(t, 153.1, s.RankedScore, 1e-9)
	assert.InDelta(t, 160, s.GeneralScore, 1e-9)
}

func TestAggregate_PPScoreOnlyPerfect(t *testing.T) {
	cfg := DefaultConfig()

	s := cfg.Aggregate([]pass.QualifyingPass{
		{PassID: 1, LevelID: 1, ScoreV2: 100, Accuracy: acc(1.0)},
		{PassID: 2, LevelID: 2, ScoreV2: 70, Accuracy: acc(0.999)},
		{PassID: 3, LevelID: 3, ScoreV2: 40},
	})

	assert.InDelta(t, 100, s.PPScore, 1e-9)
}

func TestAggregate_WFScoreUsesBaseScore(t *testing.T) {
	cfg := DefaultConfig()

	s := cfg.Aggregate([]pass.QualifyingPass{
		{PassID: 1, LevelID: 1, ScoreV2: 500, BaseScore: 100, IsWorldsFirst: true},
		{PassID: 2, LevelID: 2, ScoreV2: 300, BaseScore: 80},
	})

	// WFScore суммирует базовые очки, а не ScoreV2.
	assert.InDelta(t, 100, s.WFScore, 1e-9)
	assert.Equal(t, 1, s.WorldsFirstCount)
}

func TestAggregate_WFCountOverAllPasses(t *testing.T) {
	cfg := DefaultConfig()

	// Флаг учитывается даже на прохождении, которое не лучшее на уровне.
	s := cfg.Aggregate([]pass.QualifyingPass{
		{PassID: 1, LevelID: 1, ScoreV2: 100, BaseScore: 50, IsWorldsFirst: true},
		{PassID: 2, LevelID: 1, ScoreV2: 300, BaseScore: 50},
	})

	assert.Equal(t, 1, s.WorldsFirstCount)
	assert.Equal(t, 1, s.TotalPasses)
	// WFScore считается по лучшим прохождениям; первый проигрывает второму.
	assert.InDelta(t, 0, s.WFScore, 1e-9)
}

func TestAggregate_Score12KSeparateDecay(t *testing.T) {
	cfg := DefaultConfig()

	s := cfg.Aggregate([]pass.QualifyingPass{
		{PassID: 1, LevelID: 1, ScoreV2: 100, Is12K: true},
		{PassID: 2, LevelID: 2, ScoreV2: 80},
		{PassID: 3, LevelID: 3, ScoreV2: 60, Is12K: true},
	})

	// 12K-затухание идёт по своему индексу: 100 + 0.9*60.
	assert.InDelta(t, 154, s.Score12K, 1e-9)
}

func TestAggregate_UniversalPassCount(t *testing.T) {
	cfg := DefaultConfig()

	s := cfg.Aggregate([]pass.QualifyingPass{
		{PassID: 1, LevelID: 1, ScoreV2: 100, DiffSortOrder: cfg.UniversalMinSortOrder},
		{PassID: 2, LevelID: 2, ScoreV2: 90, DiffSortOrder: cfg.UniversalMinSortOrder - 1},
	})

	assert.Equal(t, 1, s.UniversalPassCount)
}

func TestAggregate_TopDiffs(t *testing.T) {
	cfg := DefaultConfig()

	s := cfg.Aggregate([]pass.QualifyingPass{
		{PassID: 1, LevelID: 1, ScoreV2: 10, DiffID: 5, DiffSortOrder: 50},
		{PassID: 2, LevelID: 2, ScoreV2: 20, DiffID: 3, DiffSortOrder: 30, Is12K: true},
		{PassID: 3, LevelID: 3, ScoreV2: 30, DiffID: 7, DiffSortOrder: 70},
	})

	assert.Equal(t, uint64(7), s.TopDiffID)
	assert.Equal(t, uint64(3), s.Top12KDiffID)
}

func TestAggregate_DeterministicTieBreak(t *testing.T) {
	cfg := DefaultConfig()

	// При равных очках лучшее прохождение выбирается по меньшему id.
	a := cfg.Aggregate([]pass.QualifyingPass{
		{PassID: 2, LevelID: 1, ScoreV2: 100, Accuracy: acc(0.97)},
		{PassID: 1, LevelID: 1, ScoreV2: 100, Accuracy: acc(0.99)},
	})
	b := cfg.Aggregate([]pass.QualifyingPass{
		{PassID: 1, LevelID: 1, ScoreV2: 100, Accuracy: acc(0.99)},
		{PassID: 2, LevelID: 1, ScoreV2: 100, Accuracy: acc(0.97)},
	})

	assert.Equal(t, a, b)
	assert.InDelta(t, 0.99, a.AverageXacc, 1e-9)
}
