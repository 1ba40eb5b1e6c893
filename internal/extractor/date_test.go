package extractor

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func TestDateResolver_Resolve(t *testing.T) {
	r := NewDateResolver(DefaultRules().Months)
	today := date(2025, time.July, 15)

	tests := []struct {
		name  string
		input string
		want  civil.Date
	}{
		{"yesterday", "lunch yesterday", date(2025, time.July, 14)},
		{"last week", "Last Week I bought shoes", date(2025, time.July, 8)},
		{"last month", "rent for last month", date(2025, time.June, 15)},
		{"today", "coffee today", today},
		{"relative beats absolute", "yesterday, not 1 March 2024", date(2025, time.July, 14)},
		{"day month year", "26 July 2025", date(2025, time.July, 26)},
		{"day month year ordinal", "on the 3rd of march", date(2025, time.March, 3)},
		{"month day year", "March 3, 2024 dinner", date(2024, time.March, 3)},
		{"month day year ordinal", "december 1st 2023", date(2023, time.December, 1)},
		{"slash is month first", "07/04/2025", date(2025, time.July, 4)},
		{"iso", "2024-02-29", date(2024, time.February, 29)},
		{"iso single digits", "2024-2-9", date(2024, time.February, 9)},
		{"month day", "July 27, rent", date(2025, time.July, 27)},
		{"day month", "27 July rent", date(2025, time.July, 27)},
		{"case insensitive", "26 JULY 2025", date(2025, time.July, 26)},
		{"impossible day falls through", "31 February 2025", today},
		{"impossible iso falls through", "2023-02-29", today},
		{"impossible slash falls through", "13/01/2025", today},
		{"later valid match used", "02/30/2025 or 2025-01-05", date(2025, time.January, 5)},
		{"nothing", "coffee", today},
		{"empty", "", today},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.input, today))
		})
	}
}

func TestDateResolver_LastMonthIsThirtyDays(t *testing.T) {
	r := NewDateResolver(DefaultRules().Months)
	assert.Equal(t, date(2025, time.March, 1), r.Resolve("last month", date(2025, time.March, 31)))
}

func TestDateResolver_Match(t *testing.T) {
	r := NewDateResolver(DefaultRules().Months)
	today := date(2025, time.July, 15)

	_, ok := r.Match("no date here", today)
	assert.False(t, ok)

	d, ok := r.Match("2025-01-02", today)
	assert.True(t, ok)
	assert.Equal(t, date(2025, time.January, 2), d)
}

func TestDateResolver_Spans(t *testing.T) {
	r := NewDateResolver(DefaultRules().Months)

	text := "paid 1200 on 26 July 2025"
	spans := r.Spans(text)
	if assert.NotEmpty(t, spans) {
		covered := false
		for _, s := range spans {
			if text[s[0]:s[1]] == "26 July 2025" {
				covered = true
			}
		}
		assert.True(t, covered, "spans %v", spans)
	}

	assert.Empty(t, r.Spans("spent 300 on xyz"))
}

func TestDateResolver_CustomMonths(t *testing.T) {
	r := NewDateResolver([]string{
		"janvier", "février", "mars", "avril", "mai", "juin",
		"juillet", "août", "septembre", "octobre", "novembre", "décembre",
	})
	assert.Equal(t, date(2025, time.August, 14), r.Resolve("14 août 2025", date(2025, time.July, 15)))
}
