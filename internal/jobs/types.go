package jobs

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"
)

var (
	// ErrJobNotFound is returned by a JobStore for an unknown id.
	ErrJobNotFound = errors.New("job not found")
	// ErrQueueClosed is returned when publishing to a stopped queue.
	ErrQueueClosed = errors.New("queue is closed")
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeSyncExpense pushes one stored expense to Notion.
	JobTypeSyncExpense JobType = "sync_expense"
	// JobTypeExportExpenses writes an XLSX export of a date range to object storage.
	JobTypeExportExpenses JobType = "export_expenses"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed and will not be retried.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is waiting for another attempt.
	JobStatusRetrying JobStatus = "retrying"
)

// Job is one unit of background work.
type Job struct {
	// ID is the unique identifier for this job.
	ID string `json:"id"`

	// Type selects the handler.
	Type JobType `json:"type"`

	// ExpenseID is the expense to sync (sync_expense).
	ExpenseID string `json:"expense_id,omitempty"`

	// From and To bound the export range (export_expenses). Nil is open.
	From *civil.Date `json:"from,omitempty"`
	To   *civil.Date `json:"to,omitempty"`

	// Result is set by the handler on success: a Notion page id or an export URI.
	Result string `json:"result,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error holds the message of the last failed attempt.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of retries performed so far.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Terminal reports whether the job will not change state again.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Publisher enqueues jobs.
type Publisher interface {
	// Publish enqueues job, assigning an id and defaults when unset.
	Publish(ctx context.Context, job *Job) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer runs jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs; handler is called for each job received.
	Start(ctx context.Context, handler Handler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// Handler processes a job. A returned error schedules a retry while the
// job has retries left. Handlers may set job.Result.
type Handler func(ctx context.Context, job *Job) error

// JobStore records job state so it can be queried over the API.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *Job) error

	// GetJob retrieves a job by ID or ErrJobNotFound.
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// ListJobs retrieves jobs, newest first, with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Type   JobType
	Status JobStatus
	Limit  int
	Offset int
}
