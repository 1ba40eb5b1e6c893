package inmemory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenspend/zenspend/internal/jobs"
)

func zeroBackOff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func waitForStatus(t *testing.T, store *Store, id string, want jobs.JobStatus) *jobs.Job {
	t.Helper()
	var job *jobs.Job
	require.Eventually(t, func() bool {
		j, err := store.GetJob(context.Background(), id)
		if err != nil {
			return false
		}
		job = j
		return j.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestQueue_ProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)

	ctx := context.Background()
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.Job) error {
		job.Result = "page-" + job.ExpenseID
		return nil
	}))
	defer q.Stop(ctx)

	job := &jobs.Job{Type: jobs.JobTypeSyncExpense, ExpenseID: "e-1"}
	require.NoError(t, q.Publish(ctx, job))
	assert.NotEmpty(t, job.ID)

	done := waitForStatus(t, store, job.ID, jobs.JobStatusCompleted)
	assert.Equal(t, "page-e-1", done.Result)
	assert.Equal(t, 3, done.MaxRetries)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Error)
}

func TestQueue_RetriesThenSucceeds(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store, WithBackOff(zeroBackOff), WithWorkers(1))

	var attempts atomic.Int32
	ctx := context.Background()
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.Job) error {
		if attempts.Add(1) < 3 {
			return errors.New("notion unavailable")
		}
		return nil
	}))
	defer q.Stop(ctx)

	job := &jobs.Job{Type: jobs.JobTypeSyncExpense, ExpenseID: "e-2"}
	require.NoError(t, q.Publish(ctx, job))

	done := waitForStatus(t, store, job.ID, jobs.JobStatusCompleted)
	assert.Equal(t, 2, done.RetryCount)
	assert.Empty(t, done.Error)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestQueue_FailsAfterMaxRetries(t *testing.T) {
	store := NewStore()

	var mu sync.Mutex
	var seen []jobs.JobStatus
	q := NewQueue(10, store,
		WithBackOff(zeroBackOff),
		WithObserver(func(job *jobs.Job) {
			mu.Lock()
			seen = append(seen, job.Status)
			mu.Unlock()
		}),
	)

	ctx := context.Background()
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.Job) error {
		return errors.New("bucket missing")
	}))
	defer q.Stop(ctx)

	job := &jobs.Job{Type: jobs.JobTypeExportExpenses, MaxRetries: 2}
	require.NoError(t, q.Publish(ctx, job))

	done := waitForStatus(t, store, job.ID, jobs.JobStatusFailed)
	assert.Equal(t, 2, done.RetryCount)
	assert.Equal(t, "bucket missing", done.Error)
	assert.True(t, done.Terminal())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []jobs.JobStatus{
		jobs.JobStatusRetrying, jobs.JobStatusRetrying, jobs.JobStatusFailed,
	}, seen)
}

func TestQueue_BackOffStopFailsImmediately(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store, WithBackOff(func() backoff.BackOff { return &backoff.StopBackOff{} }))

	ctx := context.Background()
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.Job) error {
		return errors.New("boom")
	}))
	defer q.Stop(ctx)

	job := &jobs.Job{Type: jobs.JobTypeSyncExpense}
	require.NoError(t, q.Publish(ctx, job))

	done := waitForStatus(t, store, job.ID, jobs.JobStatusFailed)
	assert.Equal(t, 0, done.RetryCount)
}

func TestQueue_RecoversPanics(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store, WithBackOff(func() backoff.BackOff { return &backoff.StopBackOff{} }))

	ctx := context.Background()
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.Job) error {
		panic("nil map")
	}))
	defer q.Stop(ctx)

	job := &jobs.Job{Type: jobs.JobTypeSyncExpense}
	require.NoError(t, q.Publish(ctx, job))

	done := waitForStatus(t, store, job.ID, jobs.JobStatusFailed)
	assert.Contains(t, done.Error, "job panicked: nil map")
}

func TestQueue_PublishValidation(t *testing.T) {
	q := NewQueue(1, NewStore())
	err := q.Publish(context.Background(), &jobs.Job{})
	assert.Error(t, err)
}

func TestQueue_Closed(t *testing.T) {
	q := NewQueue(1, NewStore())
	require.NoError(t, q.Close())
	require.NoError(t, q.Stop(context.Background()), "stop is idempotent")

	err := q.Publish(context.Background(), &jobs.Job{Type: jobs.JobTypeSyncExpense})
	assert.ErrorIs(t, err, jobs.ErrQueueClosed)

	err = q.Start(context.Background(), func(context.Context, *jobs.Job) error { return nil })
	assert.ErrorIs(t, err, jobs.ErrQueueClosed)
}

func TestQueue_PublishHonoursContext(t *testing.T) {
	q := NewQueue(0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := q.Publish(ctx, &jobs.Job{Type: jobs.JobTypeSyncExpense})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultBackOff(t *testing.T) {
	b := DefaultBackOff()
	first := b.NextBackOff()
	assert.Greater(t, first, time.Duration(0))
	assert.LessOrEqual(t, first, 2*time.Second)
}
