// Package storage defines the persistence contract for expenses.
package storage

import (
	"context"
	"errors"

	"cloud.google.com/go/civil"

	"github.com/zenspend/zenspend/internal/domain"
)

// ErrNotFound is returned when an expense id is unknown.
var ErrNotFound = errors.New("expense not found")

// ExpenseRepository persists expenses. Implementations are safe for
// concurrent use.
type ExpenseRepository interface {
	// InsertExpense stores a new expense. The id must be set.
	InsertExpense(ctx context.Context, e *domain.Expense) error

	// GetExpense returns the expense with the given id or ErrNotFound.
	GetExpense(ctx context.Context, id string) (*domain.Expense, error)

	// ListExpenses returns expenses matching filter, newest date first.
	ListExpenses(ctx context.Context, filter domain.ExpenseFilter) ([]*domain.Expense, error)

	// CategoryTotals sums expenses per category within [from, to].
	// A nil bound is open.
	CategoryTotals(ctx context.Context, from, to *civil.Date) ([]domain.CategoryTotal, error)
}
