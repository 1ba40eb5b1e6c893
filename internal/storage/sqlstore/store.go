package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/zenspend/zenspend/internal/domain"
	"github.com/zenspend/zenspend/internal/storage"
)

const expenseColumns = "id, amount, category, date, description, source, input, created_at"

// Store is a storage.ExpenseRepository over database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database handle.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// EnsureSchema creates the expenses table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		return fmt.Errorf("EnsureSchema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertExpense implements storage.ExpenseRepository.
func (s *Store) InsertExpense(ctx context.Context, e *domain.Expense) error {
	if e.ID == "" {
		return fmt.Errorf("InsertExpense: expense ID is required")
	}

	q := fmt.Sprintf("INSERT INTO expenses (%s) VALUES (%s)", expenseColumns, s.placeholders(1, 8))
	_, err := s.db.ExecContext(ctx, q,
		e.ID,
		e.Amount.String(),
		e.Category,
		e.Date.String(),
		nullString(e.Description),
		string(e.Source),
		e.Input,
		e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("InsertExpense: %w", err)
	}
	return nil
}

// GetExpense implements storage.ExpenseRepository.
func (s *Store) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	q := fmt.Sprintf("SELECT %s FROM expenses WHERE id = %s", expenseColumns, s.dialect.placeholder(1))
	e, err := scanExpense(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetExpense: %w", err)
	}
	return e, nil
}

// ListExpenses implements storage.ExpenseRepository.
func (s *Store) ListExpenses(ctx context.Context, filter domain.ExpenseFilter) ([]*domain.Expense, error) {
	where, args := s.where(filter.From, filter.To, filter.Category)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM expenses%s ORDER BY date DESC, created_at DESC, id ASC", expenseColumns, where)
	switch {
	case filter.Limit > 0:
		b.WriteString(" LIMIT " + strconv.Itoa(filter.Limit))
	case filter.Offset > 0:
		b.WriteString(" LIMIT " + s.dialect.noLimit)
	}
	if filter.Offset > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(filter.Offset))
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("ListExpenses: %w", err)
	}
	defer rows.Close()

	result := []*domain.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("ListExpenses: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListExpenses: %w", err)
	}
	return result, nil
}

// CategoryTotals implements storage.ExpenseRepository. Sums are computed
// with decimal arithmetic so SQLite text amounts stay exact.
func (s *Store) CategoryTotals(ctx context.Context, from, to *civil.Date) ([]domain.CategoryTotal, error) {
	where, args := s.where(from, to, "")
	q := "SELECT category, amount FROM expenses" + where

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("CategoryTotals: %w", err)
	}
	defer rows.Close()

	byCategory := make(map[string]*domain.CategoryTotal)
	for rows.Next() {
		var (
			category string
			amount   decimal.Decimal
		)
		if err := rows.Scan(&category, &amount); err != nil {
			return nil, fmt.Errorf("CategoryTotals: scan: %w", err)
		}
		t, ok := byCategory[category]
		if !ok {
			t = &domain.CategoryTotal{Category: category, Total: decimal.Zero}
			byCategory[category] = t
		}
		t.Total = t.Total.Add(amount)
		t.Count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("CategoryTotals: %w", err)
	}

	totals := make([]domain.CategoryTotal, 0, len(byCategory))
	for _, t := range byCategory {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Category < totals[j].Category })
	return totals, nil
}

func (s *Store) where(from, to *civil.Date, category string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if from != nil {
		args = append(args, from.String())
		conds = append(conds, "date >= "+s.dialect.placeholder(len(args)))
	}
	if to != nil {
		args = append(args, to.String())
		conds = append(conds, "date <= "+s.dialect.placeholder(len(args)))
	}
	if category != "" {
		args = append(args, category)
		conds = append(conds, "category = "+s.dialect.placeholder(len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) placeholders(first, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = s.dialect.placeholder(first + i)
	}
	return strings.Join(ps, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*domain.Expense, error) {
	var (
		e           domain.Expense
		date        dateValue
		description sql.NullString
		source      string
		createdAt   timeValue
	)
	if err := row.Scan(&e.ID, &e.Amount, &e.Category, &date, &description, &source, &e.Input, &createdAt); err != nil {
		return nil, err
	}
	e.Date = date.Date
	e.CreatedAt = createdAt.Time
	e.Source = domain.ExpenseSource(source)
	if description.Valid {
		d := description.String
		e.Description = &d
	}
	return &e, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// dateValue scans a DATE column, which PostgreSQL returns as time.Time and
// SQLite as text.
type dateValue struct {
	civil.Date
}

func (d *dateValue) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Date = civil.DateOf(v)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("dateValue: unsupported type %T", src)
	}
}

func (d *dateValue) parse(s string) error {
	// SQLite may hand back a full timestamp for a date-only value.
	if len(s) > 10 {
		s = s[:10]
	}
	parsed, err := civil.ParseDate(s)
	if err != nil {
		return fmt.Errorf("dateValue: %w", err)
	}
	d.Date = parsed
	return nil
}

// timeValue scans a timestamp column that drivers return either as
// time.Time or as text.
type timeValue struct {
	time.Time
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
}

func (t *timeValue) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("timeValue: unsupported type %T", src)
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timeValue: cannot parse %q", s)
}

var _ storage.ExpenseRepository = (*Store)(nil)
