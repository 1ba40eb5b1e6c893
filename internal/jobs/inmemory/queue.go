package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zenspend/zenspend/internal/jobs"
)

const (
	defaultWorkers    = 5
	defaultMaxRetries = 3
)

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// Jobs do not survive a restart.
type Queue struct {
	jobChan   chan *jobs.Job
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool

	workers    int
	newBackOff func() backoff.BackOff
	observe    func(job *jobs.Job)
	log        zerolog.Logger

	bmu      sync.Mutex
	backoffs map[string]backoff.BackOff
}

// Option configures a Queue.
type Option func(*Queue)

// WithWorkers sets the number of concurrent workers.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithBackOff sets the retry delay policy. One policy instance is created
// per job.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(q *Queue) { q.newBackOff = f }
}

// WithObserver registers a callback run after every attempt.
func WithObserver(f func(job *jobs.Job)) Option {
	return func(q *Queue) { q.observe = f }
}

// WithLogger sets the queue logger.
func WithLogger(log zerolog.Logger) Option {
	return func(q *Queue) { q.log = log }
}

// DefaultBackOff is the exponential retry policy used when none is given.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	// Retry count, not elapsed time, bounds the attempts.
	b.MaxElapsedTime = 0
	return b
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can be queued before Publish blocks.
func NewQueue(bufferSize int, store jobs.JobStore, opts ...Option) *Queue {
	q := &Queue{
		jobChan:    make(chan *jobs.Job, bufferSize),
		closeChan:  make(chan struct{}),
		store:      store,
		workers:    defaultWorkers,
		newBackOff: DefaultBackOff,
		log:        zerolog.Nop(),
		backoffs:   make(map[string]backoff.BackOff),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Publish implements the Publisher interface.
func (q *Queue) Publish(ctx context.Context, job *jobs.Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return jobs.ErrQueueClosed
	}
	if job.Type == "" {
		return fmt.Errorf("Publish: job type is required")
	}

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = defaultMaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("Publish: save job: %w", err)
		}
	}

	// Workers own the queued copy; the caller keeps its own.
	queued := *job
	select {
	case q.jobChan <- &queued:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return jobs.ErrQueueClosed
	}
}

// Start implements the Consumer interface.
func (q *Queue) Start(ctx context.Context, handler jobs.Handler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return jobs.ErrQueueClosed
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	q.log.Info().Int("workers", q.workers).Msg("Job queue started")
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob runs one attempt and either completes, fails or schedules
// the next attempt.
func (q *Queue) processJob(ctx context.Context, job *jobs.Job, handler jobs.Handler) {
	log := q.log.With().Str("job_id", job.ID).Str("job_type", string(job.Type)).Logger()

	now := time.Now()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &now
	job.CompletedAt = nil
	q.save(ctx, job)

	err := runHandler(ctx, handler, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		q.forget(job.ID)
		log.Info().Str("result", job.Result).Msg("Job completed")

	case job.RetryCount < job.MaxRetries:
		delay := q.nextDelay(job.ID)
		if delay == backoff.Stop {
			job.Status = jobs.JobStatusFailed
			job.Error = err.Error()
			q.forget(job.ID)
			break
		}
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		job.Error = err.Error()
		log.Warn().Err(err).Int("retry", job.RetryCount).Dur("delay", delay).Msg("Job failed, retrying")
		q.save(ctx, job)
		q.notify(job)

		time.AfterFunc(delay, func() {
			job.Status = jobs.JobStatusPending
			job.StartedAt = nil
			job.CompletedAt = nil
			if err := q.Publish(ctx, job); err != nil {
				job.Status = jobs.JobStatusFailed
				job.Error = fmt.Sprintf("requeue: %v", err)
				q.forget(job.ID)
				q.save(context.Background(), job)
				q.notify(job)
			}
		})
		return

	default:
		job.Status = jobs.JobStatusFailed
		job.Error = err.Error()
		q.forget(job.ID)
	}

	if job.Status == jobs.JobStatusFailed {
		log.Error().Err(err).Int("retries", job.RetryCount).Msg("Job failed")
	}
	q.save(ctx, job)
	q.notify(job)
}

func runHandler(ctx context.Context, handler jobs.Handler, job *jobs.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return handler(ctx, job)
}

func (q *Queue) nextDelay(jobID string) time.Duration {
	q.bmu.Lock()
	defer q.bmu.Unlock()

	b, ok := q.backoffs[jobID]
	if !ok {
		b = q.newBackOff()
		b.Reset()
		q.backoffs[jobID] = b
	}
	return b.NextBackOff()
}

func (q *Queue) forget(jobID string) {
	q.bmu.Lock()
	delete(q.backoffs, jobID)
	q.bmu.Unlock()
}

func (q *Queue) save(ctx context.Context, job *jobs.Job) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		q.log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to save job state")
	}
}

func (q *Queue) notify(job *jobs.Job) {
	if q.observe != nil {
		q.observe(job)
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
