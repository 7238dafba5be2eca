package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuforums/tuf-rankings/internal/domain/shared"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []shared.Event
	err    error
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func syncBus() *InMemoryEventBus {
	cfg := DefaultConfig()
	cfg.AsyncMode = false
	return NewInMemoryEventBus(cfg)
}

func TestPublish_DeliversToSubscribedType(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	h := &recordingHandler{}
	require.NoError(t, bus.Subscribe(shared.EventPassCreated, h))

	event := shared.NewPassChangedEvent(shared.EventPassCreated, 1, 2, 3, []uint64{3})
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Equal(t, 1, h.count())
	assert.Equal(t, shared.EventPassCreated, h.events[0].EventType())
}

func TestPublish_IgnoresOtherTypes(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	h := &recordingHandler{}
	require.NoError(t, bus.Subscribe(shared.EventVoteChanged, h))

	require.NoError(t, bus.Publish(context.Background(),
		shared.NewLikeChangedEvent(5)))

	assert.Equal(t, 0, h.count())
}

func TestPublish_GlobalSubscriberSeesEverything(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	h := &recordingHandler{}
	require.NoError(t, bus.SubscribeAll(h))

	require.NoError(t, bus.Publish(context.Background(), shared.NewVoteChangedEvent(1, 2)))
	require.NoError(t, bus.Publish(context.Background(), shared.NewLikeChangedEvent(1)))
	require.NoError(t, bus.Publish(context.Background(), shared.NewStatsRecomputedEvent(9)))

	assert.Equal(t, 3, h.count())
}

func TestPublish_HandlerErrorDoesNotPropagate(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	failing := &recordingHandler{err: errors.New("recompute failed")}
	second := &recordingHandler{}
	require.NoError(t, bus.Subscribe(shared.EventLikeChanged, failing))
	require.NoError(t, bus.Subscribe(shared.EventLikeChanged, second))

	// Ошибка обработчика логируется, но не ломает публикацию и не
	// мешает остальным подписчикам.
	assert.NoError(t, bus.Publish(context.Background(), shared.NewLikeChangedEvent(1)))
	assert.Equal(t, 1, second.count())
}

func TestPublish_AfterCloseFails(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), shared.NewLikeChangedEvent(1))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventLikeChanged, &recordingHandler{})
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestPublish_NilEventRejected(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	assert.Error(t, bus.Publish(context.Background(), nil))
	assert.Error(t, bus.Subscribe(shared.EventPassCreated, nil))
}

func TestPublish_AsyncDeliversEventually(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AsyncMode = true
	bus := NewInMemoryEventBus(cfg)

	h := &recordingHandler{}
	require.NoError(t, bus.Subscribe(shared.EventPassCreated, h))

	event := shared.NewPassChangedEvent(shared.EventPassCreated, 1, 2, 3, []uint64{3})
	require.NoError(t, bus.Publish(context.Background(), event))

	assert.Eventually(t, func() bool { return h.count() == 1 },
		2*time.Second, 10*time.Millisecond)
	require.NoError(t, bus.Close())
}

func TestMetrics_Snapshot(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	failing := &recordingHandler{err: errors.New("boom")}
	require.NoError(t, bus.Subscribe(shared.EventVoteChanged, failing))

	require.NoError(t, bus.Publish(context.Background(), shared.NewVoteChangedEvent(1, 2)))
	require.NoError(t, bus.Publish(context.Background(), shared.NewVoteChangedEvent(1, 2)))

	snap := bus.Metrics().Snapshot()
	stats := snap[shared.EventVoteChanged]
	assert.Equal(t, int64(2), stats.Published)
	assert.Equal(t, int64(2), stats.Executions)
	assert.Equal(t, int64(2), stats.Failures)
	assert.GreaterOrEqual(t, stats.AvgDuration, time.Duration(0))
}
