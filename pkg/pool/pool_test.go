package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_EmptyTasks(t *testing.T) {
	results := Run(context.Background(), nil, Options{Concurrency: 4}, nil)
	assert.Empty(t, results, "empty task list should return empty results immediately")
}

func TestRun_PreservesInputOrder(t *testing.T) {
	tasks := make([]TaskFunc, 20)
	for i := 0; i < 20; i++ {
		i := i
		tasks[i] = func(ctx context.Context) (any, error) { return i, nil }
	}

	results := Run(context.Background(), tasks, Options{Concurrency: 5}, nil)
	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, i, r.Value, "settlement at index %d should carry value %d", i, i)
		assert.NoError(t, r.Err)
	}
}

func TestRun_FailFastSkipsRemainingTasks(t *testing.T) {
	var started atomic.Int64
	tasks := make([]TaskFunc, 50)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (any, error) {
			started.Add(1)
			if i == 0 {
				return nil, errors.New("boom")
			}
			return i, nil
		}
	}

	results := Run(context.Background(), tasks, Options{Concurrency: 1, FailFast: true}, nil)
	require.Len(t, results, 50)
	assert.Error(t, results[0].Err)

	var skipped int
	for _, r := range results {
		if r.Skipped {
			skipped++
		}
	}
	assert.Greater(t, skipped, 0, "fail-fast should leave at least one task unexecuted")
}

func TestRun_OnCompleteCalledForEveryTask(t *testing.T) {
	tasks := []TaskFunc{
		func(ctx context.Context) (any, error) { return 1, nil },
		func(ctx context.Context) (any, error) { return nil, errors.New("fail") },
		func(ctx context.Context) (any, error) { return 3, nil },
	}

	var calls atomic.Int64
	Run(context.Background(), tasks, Options{Concurrency: 2}, func(Settlement) {
		calls.Add(1)
	})

	assert.Equal(t, int64(3), calls.Load(), "onComplete must fire once per task")
}

func TestRun_ConcurrencyClampedToTaskCount(t *testing.T) {
	tasks := []TaskFunc{
		func(ctx context.Context) (any, error) { return nil, nil },
	}
	results := Run(context.Background(), tasks, Options{Concurrency: 64}, nil)
	assert.Len(t, results, 1)
}

func TestRun_TableDriven(t *testing.T) {
	tests := []struct {
		name        string
		taskCount   int
		concurrency int
		failFast    bool
		failAt      int // -1 means no failure
	}{
		{name: "all succeed", taskCount: 10, concurrency: 3, failAt: -1},
		{name: "single worker", taskCount: 5, concurrency: 1, failAt: -1},
		{name: "fail fast first task", taskCount: 10, concurrency: 2, failFast: true, failAt: 0},
		{name: "fail without fail-fast continues", taskCount: 10, concurrency: 2, failFast: false, failAt: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := make([]TaskFunc, tt.taskCount)
			for i := range tasks {
				i := i
				tasks[i] = func(ctx context.Context) (any, error) {
					if i == tt.failAt {
						return nil, errors.New("induced failure")
					}
					return i, nil
				}
			}

			results := Run(context.Background(), tasks, Options{
				Concurrency: tt.concurrency,
				FailFast:    tt.failFast,
			}, nil)

			require.Len(t, results, tt.taskCount)
			if !tt.failFast && tt.failAt >= 0 {
				var failures int
				for _, r := range results {
					if r.Err != nil {
						failures++
					}
				}
				assert.Equal(t, 1, failures, "without fail-fast only the induced failure should be recorded")
			}
		})
	}
}
