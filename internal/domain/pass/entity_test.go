package pass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpeed_Normalize(t *testing.T) {
	assert.Equal(t, Speed(1.0), Speed(0).Normalize())
	assert.Equal(t, Speed(1.0), Speed(1.0).Normalize())
	assert.Equal(t, Speed(1.5), Speed(1.5).Normalize())
}

func TestSpeed_IsValid(t *testing.T) {
	assert.True(t, Speed(0).IsValid())
	assert.True(t, Speed(2).IsValid())
	assert.False(t, Speed(-0.1).IsValid())
}

func TestJudgement_Validate(t *testing.T) {
	valid := Judgement{Perfect: 100, EPerfect: 5}
	assert.NoError(t, valid.Validate())

	negative := Judgement{Perfect: 100, LateDouble: -1}
	assert.ErrorIs(t, negative.Validate(), ErrNegativeJudgement)
}

func TestJudgement_Accuracy(t *testing.T) {
	// Только идеальные нажатия дают точность 1.
	perfect := Judgement{Perfect: 500}
	assert.Equal(t, 1.0, perfect.Accuracy())

	// Смешанные бакеты взвешиваются: (100*1 + 20*0.75 + 10*0.4 + 10*0.2) / 140.
	mixed := Judgement{Perfect: 100, EPerfect: 10, LPerfect: 10, EarlySingle: 10, EarlyDouble: 5, LateDouble: 5}
	want := (100*1.0 + 20*0.75 + 10*0.4 + 10*0.2) / 140.0
	assert.InDelta(t, want, mixed.Accuracy(), 1e-9)
}

func TestJudgement_Accuracy_Fallback(t *testing.T) {
	// Прохождение без нажатий получает запасную точность.
	assert.Equal(t, 0.95, Judgement{}.Accuracy())
}

func TestJudgement_MissesAndTiles(t *testing.T) {
	j := Judgement{
		EarlyDouble: 3,
		EarlySingle: 4,
		EPerfect:    5,
		Perfect:     100,
		LPerfect:    6,
		LateSingle:  7,
		LateDouble:  8,
	}

	assert.Equal(t, 3, j.Misses())
	assert.Equal(t, 4+5+100+6+7, j.TileCount())
	assert.Equal(t, 133, j.Total())
}

func TestID_IsValid(t *testing.T) {
	assert.False(t, ID(0).IsValid())
	assert.True(t, ID(1).IsValid())
}
