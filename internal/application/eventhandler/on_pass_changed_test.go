package eventhandler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuforums/tuf-rankings/internal/application/command"
	"github.com/tuforums/tuf-rankings/internal/domain/leaderboard"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
)

type stubRecomputer struct {
	players []uint64
	failFor map[uint64]error
}

func (s *stubRecomputer) Handle(ctx context.Context, cmd command.RecomputeStatsCommand) (*command.RecomputeStatsResult, error) {
	s.players = append(s.players, cmd.PlayerID)
	if err, ok := s.failFor[cmd.PlayerID]; ok {
		return nil, err
	}
	return &command.RecomputeStatsResult{}, nil
}

type stubRanker struct {
	metrics []leaderboard.Metric
	err     error
}

func (s *stubRanker) GetPage(ctx context.Context, q leaderboard.PageQuery) (*leaderboard.Page, error) {
	return nil, errors.New("not implemented")
}

func (s *stubRanker) GetMaxFields(ctx context.Context) (*leaderboard.MaxFields, error) {
	return nil, errors.New("not implemented")
}

func (s *stubRanker) ReassignRanks(ctx context.Context, metric leaderboard.Metric) error {
	if s.err != nil {
		return s.err
	}
	s.metrics = append(s.metrics, metric)
	return nil
}

type stubCache struct {
	invalidated []string
}

func (s *stubCache) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("miss")
}

func (s *stubCache) Set(ctx context.Context, key string, value interface{}, tags ...string) error {
	return nil
}

func (s *stubCache) InvalidateTag(ctx context.Context, tag string) error {
	s.invalidated = append(s.invalidated, tag)
	return nil
}

func TestOnPassChanged_RecomputesAffectedPlayers(t *testing.T) {
	rec := &stubRecomputer{}
	ranker := &stubRanker{}
	cache := &stubCache{}
	h := NewOnPassChangedHandler(rec, ranker, cache, nil)

	event := shared.NewPassChangedEvent(shared.EventPassCreated, 1, 10, 7, []uint64{7, 3})
	require.NoError(t, h.Handle(context.Background(), event))

	assert.Equal(t, []uint64{7, 3}, rec.players)
	assert.Equal(t, leaderboard.AllMetrics(), ranker.metrics)
	assert.Equal(t, []string{leaderboard.TagAll}, cache.invalidated)
}

func TestOnPassChanged_PartialFailureStillRanksAndInvalidates(t *testing.T) {
	rec := &stubRecomputer{failFor: map[uint64]error{3: errors.New("timeout")}}
	ranker := &stubRanker{}
	cache := &stubCache{}
	h := NewOnPassChangedHandler(rec, ranker, cache, nil)

	event := shared.NewPassChangedEvent(shared.EventPassDeleted, 1, 10, 7, []uint64{7, 3})
	err := h.Handle(context.Background(), event)

	// Отказ одного пересчёта не блокирует ранги и сброс кеша, но событие
	// помечается неуспешным.
	assert.Error(t, err)
	assert.Equal(t, []uint64{7, 3}, rec.players)
	assert.NotEmpty(t, ranker.metrics)
	assert.Equal(t, []string{leaderboard.TagAll}, cache.invalidated)
}

func TestOnPassChanged_IgnoresForeignEvents(t *testing.T) {
	rec := &stubRecomputer{}
	h := NewOnPassChangedHandler(rec, &stubRanker{}, &stubCache{}, nil)

	err := h.Handle(context.Background(), shared.NewVoteChangedEvent(1, 2))
	assert.NoError(t, err)
	assert.Empty(t, rec.players)
}

func TestOnVoteChanged_InvalidatesLevelTag(t *testing.T) {
	cache := &stubCache{}
	h := NewOnVoteChangedHandler(cache, nil)

	require.NoError(t, h.Handle(context.Background(), shared.NewVoteChangedEvent(42, 5)))
	assert.Equal(t, []string{"level:42"}, cache.invalidated)
}

func TestOnLikeChanged_InvalidatesLevelTag(t *testing.T) {
	cache := &stubCache{}
	h := NewOnLikeChangedHandler(cache, nil)

	require.NoError(t, h.Handle(context.Background(), shared.NewLikeChangedEvent(42)))
	assert.Equal(t, []string{"level:42"}, cache.invalidated)
}
