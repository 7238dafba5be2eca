package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tuforums/tuf-rankings/internal/domain/level"
	"github.com/tuforums/tuf-rankings/internal/domain/pass"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
)

func validSubmit() SubmitPassCommand {
	return SubmitPassCommand{
		LevelID:       1,
		PlayerID:      2,
		Speed:         1.0,
		VidUploadTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Judgement:     JudgementInput{Perfect: 500},
	}
}

func TestSubmitPassCommand_Validate(t *testing.T) {
	assert.NoError(t, validSubmit().Validate())

	cmd := validSubmit()
	cmd.LevelID = 0
	assert.ErrorIs(t, cmd.Validate(), pass.ErrMissingReference)

	cmd = validSubmit()
	cmd.PlayerID = 0
	assert.ErrorIs(t, cmd.Validate(), pass.ErrMissingReference)

	cmd = validSubmit()
	cmd.Speed = -0.5
	assert.ErrorIs(t, cmd.Validate(), pass.ErrInvalidSpeed)

	cmd = validSubmit()
	cmd.VidUploadTime = time.Time{}
	assert.ErrorIs(t, cmd.Validate(), pass.ErrMissingUploadTime)

	cmd = validSubmit()
	cmd.Judgement.Perfect = -1
	assert.ErrorIs(t, cmd.Validate(), pass.ErrNegativeJudgement)
}

func TestUpdatePassCommand_Validate(t *testing.T) {
	assert.NoError(t, UpdatePassCommand{PassID: 1}.Validate())

	assert.ErrorIs(t, UpdatePassCommand{}.Validate(), shared.ErrInvalidID)

	badSpeed := -1.0
	assert.ErrorIs(t,
		UpdatePassCommand{PassID: 1, Speed: &badSpeed}.Validate(),
		pass.ErrInvalidSpeed)

	zeroTime := time.Time{}
	assert.ErrorIs(t,
		UpdatePassCommand{PassID: 1, VidUploadTime: &zeroTime}.Validate(),
		pass.ErrMissingUploadTime)

	badJudgement := JudgementInput{EarlyDouble: -1}
	assert.ErrorIs(t,
		UpdatePassCommand{PassID: 1, Judgement: &badJudgement}.Validate(),
		pass.ErrNegativeJudgement)
}

func TestDeletePassCommand_Validate(t *testing.T) {
	assert.NoError(t, DeletePassCommand{PassID: 1}.Validate())
	assert.NoError(t, DeletePassCommand{PassID: 1, Restore: true}.Validate())
	assert.ErrorIs(t, DeletePassCommand{}.Validate(), shared.ErrInvalidID)
}

func TestCastVoteCommand_Validate(t *testing.T) {
	assert.NoError(t, CastVoteCommand{LevelID: 1, PlayerID: 2, Vote: 5}.Validate())
	assert.NoError(t, CastVoteCommand{LevelID: 1, PlayerID: 2, Vote: -5}.Validate())

	assert.ErrorIs(t,
		CastVoteCommand{PlayerID: 2, Vote: 1}.Validate(),
		level.ErrVoteMissingReference)

	assert.ErrorIs(t,
		CastVoteCommand{LevelID: 1, PlayerID: 2, Vote: 6}.Validate(),
		level.ErrVoteOutOfRange)
	assert.ErrorIs(t,
		CastVoteCommand{LevelID: 1, PlayerID: 2, Vote: -6}.Validate(),
		level.ErrVoteOutOfRange)

	// Отзыв голоса не проверяет значение: его нет.
	assert.NoError(t, CastVoteCommand{LevelID: 1, PlayerID: 2, Vote: 99, Remove: true}.Validate())
}

func TestToggleLikeCommand_Validate(t *testing.T) {
	assert.NoError(t, ToggleLikeCommand{LevelID: 1, PlayerID: 2, Liked: true}.Validate())
	assert.ErrorIs(t, ToggleLikeCommand{PlayerID: 2}.Validate(), shared.ErrInvalidID)
	assert.ErrorIs(t, ToggleLikeCommand{LevelID: 1}.Validate(), shared.ErrInvalidID)
}

func TestRecomputeStatsCommand_Validate(t *testing.T) {
	assert.NoError(t, RecomputeStatsCommand{PlayerID: 1}.Validate())
	assert.ErrorIs(t, RecomputeStatsCommand{}.Validate(), shared.ErrInvalidID)
}

func TestMergeAffected(t *testing.T) {
	// Владелец прохождения всегда первый, дубликаты схлопываются.
	assert.Equal(t, []uint64{7}, mergeAffected(7, nil))
	assert.Equal(t, []uint64{7}, mergeAffected(7, []uint64{7}))
	assert.Equal(t, []uint64{7, 3, 9}, mergeAffected(7, []uint64{3, 7, 9, 3}))
}

func TestApplyPassEdit_PartialPatch(t *testing.T) {
	base := &pass.Pass{
		ID:       1,
		LevelID:  10,
		PlayerID: 20,
		Speed:    1.0,
		VidLink:  "https://old.example/v",
	}
	j := &pass.Judgement{PassID: 1, Perfect: 100}

	newSpeed := 1.5
	newLink := "https://new.example/v"
	is12k := true
	cmd := UpdatePassCommand{
		PassID:  1,
		Speed:   &newSpeed,
		VidLink: &newLink,
		Is12K:   &is12k,
	}

	applyPassEdit(base, j, cmd)

	assert.Equal(t, pass.Speed(1.5), base.Speed)
	assert.Equal(t, "https://new.example/v", base.VidLink)
	assert.True(t, base.Is12K)
	// Незаданные поля не трогаются.
	assert.Equal(t, uint64(10), base.LevelID)
	assert.False(t, base.Is16K)
	assert.Equal(t, 100, j.Perfect)
}

func TestApplyPassEdit_ModerationFlags(t *testing.T) {
	base := &pass.Pass{ID: 1, LevelID: 10, PlayerID: 20, Speed: 1.0}
	j := &pass.Judgement{PassID: 1, Perfect: 100}

	hidden := true
	duplicate := true
	cmd := UpdatePassCommand{
		PassID:      1,
		IsHidden:    &hidden,
		IsDuplicate: &duplicate,
	}

	applyPassEdit(base, j, cmd)

	assert.True(t, base.IsHidden)
	assert.True(t, base.IsDuplicate)

	// Обратный патч снимает флаги.
	hidden = false
	duplicate = false
	applyPassEdit(base, j, cmd)

	assert.False(t, base.IsHidden)
	assert.False(t, base.IsDuplicate)
}
