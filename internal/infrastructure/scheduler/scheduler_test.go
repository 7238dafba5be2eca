package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *fakeJob) Name() string        { return j.name }
func (j *fakeJob) Description() string { return "test job" }

func (j *fakeJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestIntervalSchedule(t *testing.T) {
	s := NewIntervalSchedule(5 * time.Minute)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(5*time.Minute), s.Next(base))
	assert.Equal(t, "@every 5m0s", s.String())
}

func TestRegister_Validation(t *testing.T) {
	s := NewScheduler(nil)

	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&fakeJob{name: "a"}, nil), ErrNilSchedule)

	require.NoError(t, s.Register(&fakeJob{name: "a"}, NewIntervalSchedule(time.Minute)))
	assert.ErrorIs(t, s.Register(&fakeJob{name: "a"}, NewIntervalSchedule(time.Minute)), ErrJobAlreadyExists)
}

func TestStartStop_Lifecycle(t *testing.T) {
	s := NewScheduler(nil)
	require.NoError(t, s.Register(&fakeJob{name: "a"}, NewIntervalSchedule(time.Hour)))

	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
}

func TestRunNow(t *testing.T) {
	s := NewScheduler(nil)
	job := &fakeJob{name: "audit"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "audit")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(1), job.runs.Load())

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRunNow_PropagatesJobError(t *testing.T) {
	s := NewScheduler(nil)
	jobErr := errors.New("db unavailable")
	require.NoError(t, s.Register(&fakeJob{name: "ranks", err: jobErr}, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "ranks")
	assert.ErrorIs(t, err, jobErr)
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Error, jobErr)
}

func TestListJobs(t *testing.T) {
	s := NewScheduler(nil)
	require.NoError(t, s.Register(&fakeJob{name: "ranks"}, NewIntervalSchedule(2*time.Minute)))
	require.NoError(t, s.Register(&fakeJob{name: "audit"}, NewIntervalSchedule(6*time.Hour)))

	infos := s.ListJobs()
	require.Len(t, infos, 2)

	names := map[string]JobInfo{}
	for _, info := range infos {
		names[info.Name] = info
	}
	assert.Contains(t, names, "ranks")
	assert.Contains(t, names, "audit")
	assert.Equal(t, "@every 2m0s", names["ranks"].Schedule)
	assert.False(t, names["audit"].NextRun.IsZero())
}

func TestScheduler_RunsDueJob(t *testing.T) {
	s := NewScheduler(nil)
	job := &fakeJob{name: "fast"}
	// Отрицательный интервал делает задачу немедленно просроченной.
	require.NoError(t, s.Register(job, NewIntervalSchedule(-time.Second)))

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop() }()

	// Цикл планировщика тикает раз в секунду.
	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 },
		3*time.Second, 50*time.Millisecond)
}
