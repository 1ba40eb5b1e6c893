package expenses

import (
	"context"
	"fmt"

	"github.com/zenspend/zenspend/internal/jobs"
	"github.com/zenspend/zenspend/internal/logger"
)

// HandleJob runs one background job. It is the queue's jobs.Handler.
func (s *Service) HandleJob(ctx context.Context, job *jobs.Job) error {
	log := logger.FromContext(ctx).With().Str("job_id", job.ID).Str("job_type", string(job.Type)).Logger()
	ctx = logger.WithContext(ctx, log)

	switch job.Type {
	case jobs.JobTypeSyncExpense:
		return s.handleSync(ctx, job)
	case jobs.JobTypeExportExpenses:
		return s.handleExport(ctx, job)
	default:
		return fmt.Errorf("HandleJob: unknown job type %q", job.Type)
	}
}

func (s *Service) handleSync(ctx context.Context, job *jobs.Job) error {
	if s.syncer == nil {
		return fmt.Errorf("handleSync: %w", ErrUnavailable)
	}
	e, err := s.repo.GetExpense(ctx, job.ExpenseID)
	if err != nil {
		return fmt.Errorf("handleSync: load expense %s: %w", job.ExpenseID, err)
	}
	pageID, err := s.syncer.SyncExpense(ctx, e)
	if err != nil {
		return fmt.Errorf("handleSync: %w", err)
	}
	job.Result = pageID
	return nil
}

func (s *Service) handleExport(ctx context.Context, job *jobs.Job) error {
	if s.exporter == nil {
		return fmt.Errorf("handleExport: %w", ErrUnavailable)
	}
	res, err := s.exporter.Export(ctx, job.From, job.To)
	if err != nil {
		return fmt.Errorf("handleExport: %w", err)
	}
	job.Result = res.URI
	return nil
}
