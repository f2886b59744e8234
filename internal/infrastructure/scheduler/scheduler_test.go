package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	financeapp "github.com/petshop/erp/internal/application/finance"
	"github.com/petshop/erp/internal/infrastructure/readmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScheduler_Add(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Add(Job{Name: "a", Interval: time.Minute, Task: noop}))
	assert.ErrorIs(t, s.Add(Job{Name: "a", Interval: time.Minute, Task: noop}), ErrDuplicateJob)
	assert.ErrorIs(t, s.Add(Job{Name: "", Interval: time.Minute, Task: noop}), ErrInvalidJob)
	assert.ErrorIs(t, s.Add(Job{Name: "b", Task: noop}), ErrInvalidJob)
	assert.ErrorIs(t, s.Add(Job{Name: "c", Interval: time.Minute}), ErrInvalidJob)

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()
	assert.ErrorIs(t, s.Add(Job{Name: "d", Interval: time.Minute, Task: noop}), ErrSchedulerRunning)
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	var calls atomic.Int32
	require.NoError(t, s.Add(Job{
		Name:     "tick",
		Interval: 10 * time.Millisecond,
		Task: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	}))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	stopped := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

func TestScheduler_RunNowRecordsFailuresAndPanics(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	boom := errors.New("event store unavailable")
	require.NoError(t, s.Add(Job{Name: "fails", Interval: time.Hour, Task: func(context.Context) error { return boom }}))
	require.NoError(t, s.Add(Job{Name: "panics", Interval: time.Hour, Task: func(context.Context) error { panic("nil map") }}))

	assert.ErrorIs(t, s.RunNow(context.Background(), "fails"), boom)
	err := s.RunNow(context.Background(), "panics")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil map")
	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrJobNotFound)

	stats := s.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "fails", stats[0].Name)
	assert.Equal(t, int64(1), stats[0].Runs)
	assert.Equal(t, int64(1), stats[0].Failures)
	assert.Equal(t, boom.Error(), stats[0].LastError)
	assert.NotNil(t, stats[0].LastRunAt)
	assert.Equal(t, "panics", stats[1].Name)
	assert.Equal(t, int64(1), stats[1].Failures)
}

func TestScheduler_TaskTimeout(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	require.NoError(t, s.Add(Job{
		Name:     "slow",
		Interval: time.Hour,
		Timeout:  20 * time.Millisecond,
		Task: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}))

	err := s.RunNow(context.Background(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type mockCatchUpper struct{ mock.Mock }

func (m *mockCatchUpper) CatchUp(ctx context.Context) ([]readmodel.CatchUpResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]readmodel.CatchUpResult), args.Error(1)
}

type mockOverdueScanner struct{ mock.Mock }

func (m *mockOverdueScanner) Scan(ctx context.Context) ([]financeapp.OverdueSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]financeapp.OverdueSummary), args.Error(1)
}

func TestCatchUpJob(t *testing.T) {
	replayer := new(mockCatchUpper)
	replayer.On("CatchUp", mock.Anything).Return([]readmodel.CatchUpResult{
		{Projection: "sales_daily", From: 10, To: 12, Applied: 2},
		{Projection: "stock_levels", From: 12, To: 12},
	}, nil).Once()
	replayer.On("CatchUp", mock.Anything).Return(nil, errors.New("db down")).Once()

	job := CatchUpJob(replayer, time.Minute, zap.NewNop())
	assert.Equal(t, JobProjectionCatchUp, job.Name)
	assert.True(t, job.RunOnStart)

	assert.NoError(t, job.Task(context.Background()))
	assert.EqualError(t, job.Task(context.Background()), "db down")
	replayer.AssertExpectations(t)
}

func TestOverdueJob(t *testing.T) {
	scanner := new(mockOverdueScanner)
	scanner.On("Scan", mock.Anything).Return([]financeapp.OverdueSummary{{ReceivablesCount: 2}}, nil)

	job := OverdueJob(scanner, time.Hour, zap.NewNop())
	assert.Equal(t, JobOverdueScan, job.Name)
	assert.NoError(t, job.Task(context.Background()))
	scanner.AssertNumberOfCalls(t, "Scan", 1)
}
