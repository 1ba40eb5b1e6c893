package extractor

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ₹ or "Rs", optionally followed by a period, then the number.
	markedAmountRe = regexp.MustCompile(`(?i)(?:₹|\brs\.?)\s*(\d+(?:\.\d+)?)`)
	bareAmountRe   = regexp.MustCompile(`\b(\d+(?:\.\d+)?)`)
)

// AmountParser finds monetary amounts in free text. Currency-marked
// amounts take precedence over bare numbers, and numbers that sit inside
// a date mention are never amounts.
type AmountParser struct {
	excluded func(text string) [][]int
}

// NewAmountParser returns a parser that ignores numbers inside the spans
// reported by excluded. A nil excluded masks nothing.
func NewAmountParser(excluded func(text string) [][]int) AmountParser {
	return AmountParser{excluded: excluded}
}

// Parse returns the first currency-marked amount, else the first bare
// number. ok is false when text has no usable number.
func (p AmountParser) Parse(text string) (decimal.Decimal, bool) {
	skip := p.spans(text)
	if found := findAmounts(markedAmountRe, text, skip, 1); len(found) > 0 {
		return found[0], true
	}
	if found := findAmounts(bareAmountRe, text, skip, 1); len(found) > 0 {
		return found[0], true
	}
	return decimal.Zero, false
}

// ParseAll returns every currency-marked amount in order of appearance.
func (p AmountParser) ParseAll(text string) []decimal.Decimal {
	return findAmounts(markedAmountRe, text, p.spans(text), -1)
}

func (p AmountParser) spans(text string) [][]int {
	if p.excluded == nil {
		return nil
	}
	return p.excluded(text)
}

func findAmounts(re *regexp.Regexp, text string, skip [][]int, limit int) []decimal.Decimal {
	var out []decimal.Decimal
	for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		if overlaps(start, end, skip) {
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSpace(text[start:end]))
		if err != nil {
			continue
		}
		out = append(out, d)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func overlaps(start, end int, spans [][]int) bool {
	for _, s := range spans {
		if start < s[1] && s[0] < end {
			return true
		}
	}
	return false
}
