package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveBaseScore(t *testing.T) {
	diff := Difficulty{ID: 1, BaseScore: 100}

	// Без собственного значения действует базовый счёт сложности.
	lvl := &Level{DiffID: 1}
	assert.Equal(t, 100.0, lvl.EffectiveBaseScore(diff))

	// Нулевое собственное значение трактуется как "не задано".
	zero := 0.0
	lvl.BaseScore = &zero
	assert.Equal(t, 100.0, lvl.EffectiveBaseScore(diff))

	own := 250.0
	lvl.BaseScore = &own
	assert.Equal(t, 250.0, lvl.EffectiveBaseScore(diff))
}

func TestIsAggregatable(t *testing.T) {
	assert.True(t, (&Level{}).IsAggregatable())
	assert.False(t, (&Level{IsDeleted: true}).IsAggregatable())
	assert.False(t, (&Level{IsHidden: true}).IsAggregatable())
}

func TestDifficulty_IsHarderThan(t *testing.T) {
	u7 := Difficulty{SortOrder: 70}
	u6 := Difficulty{SortOrder: 60}

	assert.True(t, u7.IsHarderThan(u6))
	assert.False(t, u6.IsHarderThan(u7))
	assert.False(t, u7.IsHarderThan(u7))
}

func TestRatingAccuracyVote_Validate(t *testing.T) {
	valid := RatingAccuracyVote{LevelID: 1, PlayerID: 2, DiffID: 3, Vote: 5}
	assert.NoError(t, valid.Validate())

	valid.Vote = -5
	assert.NoError(t, valid.Validate())

	outOfRange := valid
	outOfRange.Vote = 6
	assert.ErrorIs(t, outOfRange.Validate(), ErrVoteOutOfRange)

	missing := valid
	missing.DiffID = 0
	assert.ErrorIs(t, missing.Validate(), ErrVoteMissingReference)
}
