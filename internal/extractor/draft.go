package extractor

import (
	"encoding/json"
	"errors"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

var (
	// ErrExtractionFailed is returned for any input that cannot become an
	// expense. Its text is safe to show to end users.
	ErrExtractionFailed = errors.New("could not understand your expense input")

	ErrNoAmount      = errors.New("no amount found")
	ErrInvalidAmount = errors.New("amount is not a positive number")
)

// MaxAmount is the largest amount a draft may carry. It fits every storage
// backend's numeric column.
var MaxAmount = decimal.New(1, 15)

// ExpenseDraft is the structured result of one extraction.
type ExpenseDraft struct {
	Amount      decimal.Decimal
	Category    string
	Date        civil.Date
	Description *string
	Source      Source
}

type draftJSON struct {
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Date        string      `json:"date"`
	Description *string     `json:"description"`
	Source      Source      `json:"source"`
}

// MarshalJSON renders the amount as an exact JSON number and the date as
// YYYY-MM-DD.
func (d ExpenseDraft) MarshalJSON() ([]byte, error) {
	return json.Marshal(draftJSON{
		Amount:      json.Number(d.Amount.String()),
		Category:    d.Category,
		Date:        d.Date.String(),
		Description: d.Description,
		Source:      d.Source,
	})
}
