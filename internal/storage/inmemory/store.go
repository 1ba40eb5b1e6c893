package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/zenspend/zenspend/internal/domain"
	"github.com/zenspend/zenspend/internal/storage"
)

// Store keeps expenses in memory. Data is lost on restart.
type Store struct {
	mu       sync.RWMutex
	expenses map[string]*domain.Expense
}

// NewStore creates an empty in-memory expense store.
func NewStore() *Store {
	return &Store{
		expenses: make(map[string]*domain.Expense),
	}
}

// InsertExpense implements storage.ExpenseRepository.
func (s *Store) InsertExpense(ctx context.Context, e *domain.Expense) error {
	if e.ID == "" {
		return fmt.Errorf("InsertExpense: expense ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expenses[e.ID]; exists {
		return fmt.Errorf("InsertExpense: duplicate expense ID %s", e.ID)
	}
	s.expenses[e.ID] = cloneExpense(e)
	return nil
}

// GetExpense implements storage.ExpenseRepository.
func (s *Store) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.expenses[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneExpense(e), nil
}

// ListExpenses implements storage.ExpenseRepository.
func (s *Store) ListExpenses(ctx context.Context, filter domain.ExpenseFilter) ([]*domain.Expense, error) {
	s.mu.RLock()
	result := make([]*domain.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		if filter.Matches(*e) {
			result = append(result, cloneExpense(e))
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date.After(result[j].Date)
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*domain.Expense{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// CategoryTotals implements storage.ExpenseRepository.
func (s *Store) CategoryTotals(ctx context.Context, from, to *civil.Date) ([]domain.CategoryTotal, error) {
	filter := domain.ExpenseFilter{From: from, To: to}

	s.mu.RLock()
	byCategory := make(map[string]*domain.CategoryTotal)
	for _, e := range s.expenses {
		if !filter.Matches(*e) {
			continue
		}
		t, ok := byCategory[e.Category]
		if !ok {
			t = &domain.CategoryTotal{Category: e.Category, Total: decimal.Zero}
			byCategory[e.Category] = t
		}
		t.Total = t.Total.Add(e.Amount)
		t.Count++
	}
	s.mu.RUnlock()

	totals := make([]domain.CategoryTotal, 0, len(byCategory))
	for _, t := range byCategory {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Category < totals[j].Category })
	return totals, nil
}

func cloneExpense(e *domain.Expense) *domain.Expense {
	c := *e
	if e.Description != nil {
		d := *e.Description
		c.Description = &d
	}
	return &c
}

var _ storage.ExpenseRepository = (*Store)(nil)
