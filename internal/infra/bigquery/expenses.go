package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/zenspend/zenspend/internal/domain"
)

// numericScale is the fractional precision of the BigQuery NUMERIC type.
const numericScale = 9

// ExpenseRow mirrors one row of the expenses table.
type ExpenseRow struct {
	ExpenseID   string              `bigquery:"expense_id"`   // REQUIRED
	Amount      *big.Rat            `bigquery:"amount"`       // REQUIRED NUMERIC
	Category    string              `bigquery:"category"`     // REQUIRED
	ExpenseDate civil.Date          `bigquery:"expense_date"` // REQUIRED
	Description bigquery.NullString `bigquery:"description"`  // NULLABLE
	Source      string              `bigquery:"source"`       // REQUIRED
	Input       bigquery.NullString `bigquery:"input"`        // NULLABLE, raw chat text
	CreatedTS   time.Time           `bigquery:"created_ts"`   // REQUIRED
}

// categoryTotalRow is one row of the per-category aggregate query.
type categoryTotalRow struct {
	Category string   `bigquery:"category"`
	Total    *big.Rat `bigquery:"total"`
	Count    int64    `bigquery:"expense_count"`
}

// ToExpenseRow converts a domain expense into its table row.
func ToExpenseRow(e *domain.Expense) *ExpenseRow {
	row := &ExpenseRow{
		ExpenseID:   e.ID,
		Amount:      e.Amount.Rat(),
		Category:    e.Category,
		ExpenseDate: e.Date,
		Source:      string(e.Source),
		CreatedTS:   e.CreatedAt.UTC(),
	}
	if e.Description != nil {
		row.Description = bigquery.NullString{StringVal: *e.Description, Valid: true}
	}
	if e.Input != "" {
		row.Input = bigquery.NullString{StringVal: e.Input, Valid: true}
	}
	return row
}

// ToDomain converts a table row back into a domain expense.
func (r *ExpenseRow) ToDomain() (*domain.Expense, error) {
	amount, err := ratToDecimal(r.Amount)
	if err != nil {
		return nil, err
	}
	e := &domain.Expense{
		ID:        r.ExpenseID,
		Amount:    amount,
		Category:  r.Category,
		Date:      r.ExpenseDate,
		Source:    domain.ExpenseSource(r.Source),
		Input:     r.Input.StringVal,
		CreatedAt: r.CreatedTS,
	}
	if r.Description.Valid {
		d := r.Description.StringVal
		e.Description = &d
	}
	return e, nil
}

func ratToDecimal(r *big.Rat) (decimal.Decimal, error) {
	if r == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(r.FloatString(numericScale))
}
