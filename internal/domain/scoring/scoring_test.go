package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXaccMultiplier_NeutralBelowThreshold(t *testing.T) {
	assert.Equal(t, 1.0, XaccMultiplier(0))
	assert.Equal(t, 1.0, XaccMultiplier(0.5))
	assert.Equal(t, 1.0, XaccMultiplier(0.9499))
}

func TestXaccMultiplier_PerfectCap(t *testing.T) {
	assert.Equal(t, 10.0, XaccMultiplier(1.0))
	assert.Equal(t, 10.0, XaccMultiplier(1.2))
}

func TestXaccMultiplier_MonotonicAboveThreshold(t *testing.T) {
	// Между порогом и идеалом множитель строго растёт с точностью.
	prev := XaccMultiplier(0.95)
	for xacc := 0.96; xacc < 1.0; xacc += 0.01 {
		cur := XaccMultiplier(xacc)
		assert.Greater(t, cur, prev, "xacc=%f", xacc)
		prev = cur
	}
	assert.Greater(t, 10.0, prev)
}

func TestSpeedMultiplier(t *testing.T) {
	tests := []struct {
		name  string
		speed float64
		want  float64
	}{
		{"zero treated as normal", 0, 1},
		{"normal speed", 1, 1},
		{"slowdown zeroes the score", 0.8, 0},
		{"plateau", 1.2, 0.65},
		{"double speed", 2, 1},
		{"beyond double", 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SpeedMultiplier(tt.speed), 1e-9)
		})
	}
}

func TestSpeedMultiplier_PiecewiseContinuity(t *testing.T) {
	// Кусочные сегменты стыкуются без скачков на границах 1.1, 1.5 и 2.
	assert.InDelta(t, SpeedMultiplier(1.1), -3.5*1.1+4.5, 1e-9)
	assert.InDelta(t, SpeedMultiplier(1.4999999), 0.65, 1e-6)
	assert.InDelta(t, SpeedMultiplier(1.5), 0.7*1.5-0.4, 1e-9)
	assert.InDelta(t, SpeedMultiplier(1.9999999), 1.0, 1e-6)
}

func TestInverseSpeedMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, InverseSpeedMultiplier(0))
	assert.Equal(t, 1.0, InverseSpeedMultiplier(1))
	assert.InDelta(t, 0.5, InverseSpeedMultiplier(1.5), 1e-9)
	assert.Equal(t, 0.0, InverseSpeedMultiplier(0.9))
}

func TestMissMultiplier_NoMissBonus(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg.NoMissBonus, cfg.MissMultiplier(1000, 0))
}

func TestMissMultiplier_GraceTiles(t *testing.T) {
	cfg := DefaultConfig()
	// Один промах на 315+ тайлов прощается полностью.
	assert.Equal(t, 1.0, cfg.MissMultiplier(315, 1))
	assert.Equal(t, 1.0, cfg.MissMultiplier(700, 2))
}

func TestMissMultiplier_CurveBounds(t *testing.T) {
	cfg := DefaultConfig()

	// Первый незасчитанный промах даёт стартовый штраф.
	assert.InDelta(t, 0.9, cfg.MissMultiplier(0, 1), 1e-9)

	// За верхней границей окна штраф насыщается.
	assert.InDelta(t, 0.5, cfg.MissMultiplier(0, 51), 1e-9)
	assert.InDelta(t, 0.5, cfg.MissMultiplier(0, 500), 1e-9)
}

func TestMissMultiplier_MonotonicInWindow(t *testing.T) {
	cfg := DefaultConfig()
	prev := cfg.MissMultiplier(0, 1)
	for misses := 2; misses <= 50; misses++ {
		cur := cfg.MissMultiplier(0, misses)
		assert.LessOrEqual(t, cur, prev, "misses=%d", misses)
		prev = cur
	}
}

func TestScoreV2_NormalPass(t *testing.T) {
	cfg := DefaultConfig()

	score := cfg.ScoreV2(PassInput{
		BaseScore: 100,
		Xacc:      1.0,
		Speed:     1.0,
		Tiles:     1000,
		Misses:    0,
	})

	// 100 * 10 (идеальная точность) * 1 (скорость) * 1.1 (без промахов).
	assert.InDelta(t, 1100, score, 1e-9)
}

func TestScoreV2_NoHoldPenalty(t *testing.T) {
	cfg := DefaultConfig()

	in := PassInput{BaseScore: 100, Xacc: 0.9, Speed: 1.0, Misses: 0}
	withHold := cfg.ScoreV2(in)
	in.NoHoldTap = true
	withoutHold := cfg.ScoreV2(in)

	assert.InDelta(t, withHold*cfg.NoHoldPenalty, withoutHold, 1e-9)
}

func TestScoreV2_SlowdownZeroes(t *testing.T) {
	cfg := DefaultConfig()

	score := cfg.ScoreV2(PassInput{BaseScore: 100, Xacc: 1.0, Speed: 0.5})
	assert.Equal(t, 0.0, score)
}

func TestScoreV2_InverseCurveFloor(t *testing.T) {
	cfg := DefaultConfig()

	// На инверсной кривой ускорение гасит очки, но не ниже 1 до промахов.
	score := cfg.ScoreV2(PassInput{
		BaseScore:         100,
		Xacc:              0.9,
		Speed:             2.5,
		InverseSpeedCurve: true,
	})
	assert.InDelta(t, cfg.NoMissBonus, score, 1e-9)
}

func TestDecayedSum(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.0, cfg.DecayedSum(nil))
	assert.Equal(t, 100.0, cfg.DecayedSum([]float64{100}))

	// 100 + 0.9*50 = 145.
	assert.InDelta(t, 145, cfg.DecayedSum([]float64{100, 50}), 1e-9)
}

func TestDecayedSum_WindowCutoff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopWindow = 2

	// Третье значение не входит в окно.
	assert.InDelta(t, 145, cfg.DecayedSum([]float64{100, 50, 999}), 1e-9)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.GraceTiles = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.MissWindowEnd = bad.MissWindowStart
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.DecayFactor = 1.5
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.TopWindow = 0
	assert.Error(t, bad.Validate())
}
