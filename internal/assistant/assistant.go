// Package assistant phrases the confirmation shown after an expense is
// recorded. Responders only produce text; they never change the expense.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zenspend/zenspend/internal/domain"
)

// Responder builds the reply for a recorded expense.
type Responder interface {
	Reply(ctx context.Context, e *domain.Expense) string
}

// Template is the deterministic responder used when no model is configured.
type Template struct{}

// Reply implements Responder.
func (Template) Reply(_ context.Context, e *domain.Expense) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Added ₹%s for %s on %s", e.Amount.StringFixed(2), e.Category, e.Date)
	if e.Description != nil && *e.Description != "" {
		fmt.Fprintf(&b, " (%s)", *e.Description)
	}
	b.WriteString(".")
	return b.String()
}

// generateFunc sends one prompt to a model and returns its text.
type generateFunc func(ctx context.Context, prompt string) (string, error)

// modelResponder asks a model to phrase the reply and falls back to the
// template when the call fails or returns nothing.
type modelResponder struct {
	name     string
	generate generateFunc
	fallback Template
	log      zerolog.Logger
}

func (m *modelResponder) Reply(ctx context.Context, e *domain.Expense) string {
	text, err := m.generate(ctx, Prompt(e))
	if err != nil {
		m.log.Warn().Err(err).Str("provider", m.name).Msg("Model reply failed, using template")
		return m.fallback.Reply(ctx, e)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return m.fallback.Reply(ctx, e)
	}
	return text
}

// Prompt is the instruction sent to a model for e.
func Prompt(e *domain.Expense) string {
	desc := "none"
	if e.Description != nil && *e.Description != "" {
		desc = *e.Description
	}
	return "You are ZenSpend, a friendly budgeting assistant.\n" +
		"An expense was just recorded with these fields:\n" +
		fmt.Sprintf("- amount: ₹%s\n", e.Amount.StringFixed(2)) +
		fmt.Sprintf("- category: %s\n", e.Category) +
		fmt.Sprintf("- date: %s\n", e.Date) +
		fmt.Sprintf("- description: %s\n\n", desc) +
		"Reply with one short sentence confirming it. Repeat the amount, category and date exactly.\n" +
		"Plain text only, no Markdown."
}
