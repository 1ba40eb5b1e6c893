package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ExpenseSource records how an expense entered the system.
type ExpenseSource string

const (
	// SourceChat is an expense recorded from a free-form chat message.
	SourceChat ExpenseSource = "chat"
	// SourceManual is an expense submitted as explicit fields.
	SourceManual ExpenseSource = "manual"
)

// Expense is one persisted expense record.
type Expense struct {
	ID          string
	Amount      decimal.Decimal
	Category    string
	Date        civil.Date
	Description *string
	Source      ExpenseSource
	// Input is the raw chat message, empty for manual entries.
	Input     string
	CreatedAt time.Time
}

// CategoryTotal is the sum of expenses in one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
	Count    int
}

// ExpenseFilter narrows a listing. Zero values mean "no constraint".
type ExpenseFilter struct {
	From     *civil.Date
	To       *civil.Date
	Category string
	Limit    int
	Offset   int
}

// Matches reports whether e satisfies the date and category constraints.
// Limit and Offset are not considered.
func (f ExpenseFilter) Matches(e Expense) bool {
	if f.From != nil && e.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Date.After(*f.To) {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	return true
}
