// Package expenses records expenses from chat messages and manual entries
// and runs the follow-up background jobs.
package expenses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zenspend/zenspend/internal/assistant"
	"github.com/zenspend/zenspend/internal/domain"
	"github.com/zenspend/zenspend/internal/export"
	"github.com/zenspend/zenspend/internal/extractor"
	"github.com/zenspend/zenspend/internal/jobs"
	"github.com/zenspend/zenspend/internal/logger"
	"github.com/zenspend/zenspend/internal/metrics"
	"github.com/zenspend/zenspend/internal/storage"
)

var (
	// ErrInvalidExpense is returned when a manual expense fails validation.
	ErrInvalidExpense = errors.New("invalid expense")
	// ErrInvalidRange is returned when a date range ends before it starts.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrUnavailable is returned when an optional collaborator is not configured.
	ErrUnavailable = errors.New("feature not configured")
)

// Syncer pushes one expense to an external tracker and returns its page id.
type Syncer interface {
	SyncExpense(ctx context.Context, e *domain.Expense) (string, error)
}

// Exporter writes the expenses of a date range to object storage.
type Exporter interface {
	Export(ctx context.Context, from, to *civil.Date) (export.Result, error)
}

// Options wires a Service. Extractor and Repo are required; the rest are
// optional and disable the matching feature when nil.
type Options struct {
	Extractor *extractor.Extractor
	Repo      storage.ExpenseRepository
	Responder assistant.Responder
	Metrics   *metrics.Metrics
	Publisher jobs.Publisher
	Jobs      jobs.JobStore
	Syncer    Syncer
	Exporter  Exporter
}

// Service is safe for concurrent use.
type Service struct {
	extractor *extractor.Extractor
	repo      storage.ExpenseRepository
	responder assistant.Responder
	metrics   *metrics.Metrics
	publisher jobs.Publisher
	jobs      jobs.JobStore
	syncer    Syncer
	exporter  Exporter

	now   func() time.Time
	newID func() string
}

// NewService validates opts and returns a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Extractor == nil {
		return nil, fmt.Errorf("expenses.NewService: extractor is required")
	}
	if opts.Repo == nil {
		return nil, fmt.Errorf("expenses.NewService: repository is required")
	}
	s := &Service{
		extractor: opts.Extractor,
		repo:      opts.Repo,
		responder: opts.Responder,
		metrics:   opts.Metrics,
		publisher: opts.Publisher,
		jobs:      opts.Jobs,
		syncer:    opts.Syncer,
		exporter:  opts.Exporter,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	if s.responder == nil {
		s.responder = assistant.Template{}
	}
	return s, nil
}

// ChatResult is the outcome of RecordFromChat.
type ChatResult struct {
	Expense *domain.Expense
	Source  extractor.Source
	Reply   string
	// SyncJobID is set when a Notion sync was queued.
	SyncJobID string
}

// RecordFromChat extracts an expense from text, stores it and queues the
// follow-up sync. Extraction failures wrap extractor.ErrExtractionFailed
// and store nothing.
func (s *Service) RecordFromChat(ctx context.Context, text string) (*ChatResult, error) {
	log := logger.FromContext(ctx)

	draft, err := s.extractor.Extract(text)
	if s.metrics != nil {
		s.metrics.ObserveExtraction(draft.Source, err)
	}
	if err != nil {
		log.Info().Err(err).Msg("Chat message not understood")
		return nil, err
	}

	e := &domain.Expense{
		ID:          s.newID(),
		Amount:      draft.Amount,
		Category:    draft.Category,
		Date:        draft.Date,
		Description: draft.Description,
		Source:      domain.SourceChat,
		Input:       text,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store(ctx, e); err != nil {
		return nil, err
	}

	result := &ChatResult{Expense: e, Source: draft.Source}
	result.SyncJobID = s.enqueueSync(ctx, e)
	result.Reply = s.responder.Reply(ctx, e)

	log.Info().
		Str("expense_id", e.ID).
		Str("amount", e.Amount.String()).
		Str("category", e.Category).
		Str("date", e.Date.String()).
		Str("source", string(draft.Source)).
		Msg("Expense recorded from chat")
	return result, nil
}

// ManualExpense is an expense submitted as explicit fields.
type ManualExpense struct {
	Amount   decimal.Decimal
	Category string
	// Date defaults to today when nil.
	Date *civil.Date
	Note *string
}

// AddExpense validates and stores a manual expense. The category is mapped
// onto the vocabulary.
func (s *Service) AddExpense(ctx context.Context, in ManualExpense) (*domain.Expense, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidExpense)
	}
	if in.Amount.GreaterThan(extractor.MaxAmount) {
		return nil, fmt.Errorf("%w: amount exceeds %s", ErrInvalidExpense, extractor.MaxAmount)
	}
	if strings.TrimSpace(in.Category) == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidExpense)
	}

	date := s.extractor.Today()
	if in.Date != nil {
		if !in.Date.IsValid() {
			return nil, fmt.Errorf("%w: date %s is not a calendar date", ErrInvalidExpense, in.Date)
		}
		date = *in.Date
	}

	var note *string
	if in.Note != nil {
		if n := strings.TrimSpace(*in.Note); n != "" {
			note = &n
		}
	}

	e := &domain.Expense{
		ID:          s.newID(),
		Amount:      in.Amount,
		Category:    s.extractor.Canonical(in.Category),
		Date:        date,
		Description: note,
		Source:      domain.SourceManual,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store(ctx, e); err != nil {
		return nil, err
	}
	s.enqueueSync(ctx, e)
	return e, nil
}

func (s *Service) store(ctx context.Context, e *domain.Expense) error {
	if err := s.repo.InsertExpense(ctx, e); err != nil {
		return fmt.Errorf("store expense: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveStored(e.Category, string(e.Source))
	}
	return nil
}

// enqueueSync queues a Notion sync for e. A failed publish is logged and
// does not fail the request.
func (s *Service) enqueueSync(ctx context.Context, e *domain.Expense) string {
	if s.syncer == nil || s.publisher == nil {
		return ""
	}
	job := &jobs.Job{Type: jobs.JobTypeSyncExpense, ExpenseID: e.ID}
	if err := s.publisher.Publish(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("expense_id", e.ID).Msg("Failed to queue Notion sync")
		return ""
	}
	return job.ID
}

// GetExpense returns one expense or storage.ErrNotFound.
func (s *Service) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	return s.repo.GetExpense(ctx, id)
}

// ListExpenses returns expenses matching filter, newest first.
func (s *Service) ListExpenses(ctx context.Context, filter domain.ExpenseFilter) ([]*domain.Expense, error) {
	if err := checkRange(filter.From, filter.To); err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, filter)
}

// Totals sums expenses per category within [from, to].
func (s *Service) Totals(ctx context.Context, from, to *civil.Date) ([]domain.CategoryTotal, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.repo.CategoryTotals(ctx, from, to)
}

// Categories returns the category vocabulary.
func (s *Service) Categories() []string {
	return s.extractor.Categories()
}

// Preview runs extraction without storing anything.
func (s *Service) Preview(text string) (extractor.ExpenseDraft, error) {
	return s.extractor.Extract(text)
}

// RequestExport queues an export of [from, to].
func (s *Service) RequestExport(ctx context.Context, from, to *civil.Date) (*jobs.Job, error) {
	if s.exporter == nil || s.publisher == nil {
		return nil, fmt.Errorf("RequestExport: %w", ErrUnavailable)
	}
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	job := &jobs.Job{Type: jobs.JobTypeExportExpenses, From: from, To: to}
	if err := s.publisher.Publish(ctx, job); err != nil {
		return nil, fmt.Errorf("RequestExport: %w", err)
	}
	return job, nil
}

// GetJob returns a background job by id.
func (s *Service) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	if s.jobs == nil {
		return nil, fmt.Errorf("GetJob: %w", ErrUnavailable)
	}
	return s.jobs.GetJob(ctx, id)
}

// ListJobs returns background jobs matching filter.
func (s *Service) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.Job, error) {
	if s.jobs == nil {
		return nil, fmt.Errorf("ListJobs: %w", ErrUnavailable)
	}
	return s.jobs.ListJobs(ctx, filter)
}

func checkRange(from, to *civil.Date) error {
	if from != nil && to != nil && to.Before(*from) {
		return fmt.Errorf("%w: %s is before %s", ErrInvalidRange, to, from)
	}
	return nil
}
