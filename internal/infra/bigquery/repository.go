package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/zenspend/zenspend/internal/domain"
	"github.com/zenspend/zenspend/internal/storage"
)

// ExpenseRepository implements storage.ExpenseRepository on BigQuery. It
// holds one shared client for all operations.
type ExpenseRepository struct {
	client *bigquery.Client
	table  Table
}

// NewExpenseRepository creates a client for projectID and targets the
// expenses table of datasetID.
func NewExpenseRepository(ctx context.Context, projectID, datasetID string) (*ExpenseRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExpenseRepository: creating client: %w", err)
	}
	return NewExpenseRepositoryWithClient(client, datasetID), nil
}

// NewExpenseRepositoryWithClient wraps an existing client.
func NewExpenseRepositoryWithClient(client *bigquery.Client, datasetID string) *ExpenseRepository {
	return &ExpenseRepository{
		client: client,
		table:  Table{ProjectID: client.Project(), DatasetID: datasetID},
	}
}

// Close closes the BigQuery client connection.
func (r *ExpenseRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertExpense implements storage.ExpenseRepository.
func (r *ExpenseRepository) InsertExpense(ctx context.Context, e *domain.Expense) error {
	if e.ID == "" {
		return fmt.Errorf("InsertExpense: expense ID is required")
	}
	return InsertExpenseWithClient(ctx, r.client, r.table, ToExpenseRow(e))
}

// GetExpense implements storage.ExpenseRepository.
func (r *ExpenseRepository) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	row, err := GetExpenseWithClient(ctx, r.client, r.table, id)
	if err != nil {
		return nil, err
	}
	return row.ToDomain()
}

// ListExpenses implements storage.ExpenseRepository.
func (r *ExpenseRepository) ListExpenses(ctx context.Context, filter domain.ExpenseFilter) ([]*domain.Expense, error) {
	rows, err := ListExpensesWithClient(ctx, r.client, r.table, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := row.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("ListExpenses: %s: %w", row.ExpenseID, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// CategoryTotals implements storage.ExpenseRepository.
func (r *ExpenseRepository) CategoryTotals(ctx context.Context, from, to *civil.Date) ([]domain.CategoryTotal, error) {
	return CategoryTotalsWithClient(ctx, r.client, r.table, from, to)
}

var _ storage.ExpenseRepository = (*ExpenseRepository)(nil)
