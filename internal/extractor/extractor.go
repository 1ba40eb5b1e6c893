// Package extractor turns a single free-form expense message into an
// ExpenseDraft. Input may be a JSON object, a key=value list or plain
// conversational text; explicitly supplied fields always win over values
// inferred from the text.
package extractor

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Config controls extractor construction.
type Config struct {
	Rules Rules

	// DescriptionFromInput fills an absent description with the raw input.
	DescriptionFromInput bool

	// Now is the clock used for relative dates and the default date.
	// Defaults to time.Now.
	Now func() time.Time

	// Location is the time zone "today" is computed in. Defaults to
	// time.Local.
	Location *time.Location
}

// Extractor is immutable after New and safe for concurrent use.
type Extractor struct {
	amounts              AmountParser
	classifier           *Classifier
	dates                *DateResolver
	vocabulary           []string
	descriptionFromInput bool
	now                  func() time.Time
	loc                  *time.Location
}

// New builds an Extractor. A zero Rules value selects DefaultRules.
func New(cfg Config) (*Extractor, error) {
	rules := cfg.Rules
	if rules.DefaultCategory == "" && len(rules.Categories) == 0 && len(rules.Months) == 0 {
		rules = DefaultRules()
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("extractor.New: %w", err)
	}

	dates := NewDateResolver(rules.Months)
	e := &Extractor{
		amounts:              NewAmountParser(dates.Spans),
		classifier:           NewClassifier(rules.Categories, rules.DefaultCategory),
		dates:                dates,
		vocabulary:           rules.Vocabulary(),
		descriptionFromInput: cfg.DescriptionFromInput,
		now:                  cfg.Now,
		loc:                  cfg.Location,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	return e, nil
}

// Categories returns the category vocabulary.
func (e *Extractor) Categories() []string {
	out := make([]string, len(e.vocabulary))
	copy(out, e.vocabulary)
	return out
}

// Canonical maps a category name supplied by a caller onto the vocabulary.
func (e *Extractor) Canonical(category string) string {
	return e.classifier.Canonical(category)
}

// ResolveDate resolves text to a date relative to the extractor's clock.
func (e *Extractor) ResolveDate(text string) civil.Date {
	return e.dates.Resolve(text, e.Today())
}

// Today is the current date in the extractor's time zone.
func (e *Extractor) Today() civil.Date {
	return civil.DateOf(e.now().In(e.loc))
}

// Extract interprets text using the extractor's clock.
func (e *Extractor) Extract(text string) (ExpenseDraft, error) {
	return e.ExtractAt(text, e.now())
}

// ExtractAt interprets text with "today" taken from now. Failures wrap
// ErrExtractionFailed together with ErrNoAmount or ErrInvalidAmount.
func (e *Extractor) ExtractAt(text string, now time.Time) (ExpenseDraft, error) {
	today := civil.DateOf(now.In(e.loc))
	fields, source := Normalize(text)

	draft := ExpenseDraft{Source: source}

	amount, err := e.amount(text, fields)
	if err != nil {
		return ExpenseDraft{}, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	draft.Amount = amount

	if fields.Has(FieldCategory) {
		draft.Category = e.categoryFromValue(fields[FieldCategory])
	} else {
		draft.Category = e.classifier.Classify(text)
	}

	if fields.Has(FieldDate) {
		draft.Date = e.dateFromValue(fields[FieldDate], today)
	} else {
		draft.Date = e.dates.Resolve(text, today)
	}

	if fields.Has(FieldDescription) {
		draft.Description = descriptionFromValue(fields[FieldDescription])
	} else if e.descriptionFromInput {
		if s := strings.TrimSpace(text); s != "" {
			draft.Description = &s
		}
	}

	return draft, nil
}

func (e *Extractor) amount(text string, fields Fields) (decimal.Decimal, error) {
	var (
		d   decimal.Decimal
		err error
	)
	if fields.Has(FieldAmount) {
		d, err = e.amountFromValue(fields[FieldAmount])
	} else {
		d, err = e.amountFromText(text)
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() || d.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// amountFromText sums every currency-marked amount when there are several,
// so "₹100 for chai and ₹50 for snacks" records 150.
func (e *Extractor) amountFromText(text string) (decimal.Decimal, error) {
	if marked := e.amounts.ParseAll(text); len(marked) > 1 {
		return decimal.Sum(marked[0], marked[1:]...), nil
	}
	d, ok := e.amounts.Parse(text)
	if !ok {
		return decimal.Zero, ErrNoAmount
	}
	return d, nil
}

func (e *Extractor) amountFromValue(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, ErrNoAmount
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return decimal.Zero, ErrInvalidAmount
		}
		return d, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, ErrInvalidAmount
		}
		return decimal.NewFromFloat(t), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return decimal.Zero, ErrNoAmount
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return d, nil
		}
		if d, ok := e.amounts.Parse(s); ok {
			return d, nil
		}
		return decimal.Zero, ErrInvalidAmount
	default:
		return decimal.Zero, ErrInvalidAmount
	}
}

func (e *Extractor) categoryFromValue(v any) string {
	switch t := v.(type) {
	case nil:
		return e.classifier.Default()
	case string:
		return e.classifier.Canonical(t)
	default:
		return e.classifier.Canonical(fmt.Sprint(t))
	}
}

func (e *Extractor) dateFromValue(v any, today civil.Date) civil.Date {
	s, ok := v.(string)
	if !ok {
		return today
	}
	return e.dates.Resolve(s, today)
}

func descriptionFromValue(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = strings.TrimSpace(t)
	default:
		s = fmt.Sprint(t)
	}
	if s == "" {
		return nil
	}
	return &s
}
