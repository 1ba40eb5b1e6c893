package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

type relativePhrase struct {
	phrase string
	days   int
}

// Checked in this order; the first contained phrase wins.
var relativePhrases = []relativePhrase{
	{"yesterday", -1},
	{"last week", -7},
	{"last month", -30},
	{"today", 0},
}

type datePattern struct {
	name  string
	re    *regexp.Regexp
	build func(m []string, months map[string]time.Month, today civil.Date) civil.Date
}

// DateResolver turns relative phrases and absolute date mentions into a
// calendar date. It is immutable after construction.
type DateResolver struct {
	months   map[string]time.Month
	patterns []datePattern
}

// NewDateResolver builds a resolver over a twelve-entry month-name table.
func NewDateResolver(monthNames []string) *DateResolver {
	months := make(map[string]time.Month, len(monthNames))
	names := make([]string, 0, len(monthNames))
	for i, n := range monthNames {
		key := strings.ToLower(strings.TrimSpace(n))
		months[key] = time.Month(i + 1)
		names = append(names, regexp.QuoteMeta(key))
	}
	// Longest first so that a name which prefixes another cannot shadow it.
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	month := "(" + strings.Join(names, "|") + ")"
	ordinal := `(?:st|nd|rd|th)?`

	return &DateResolver{
		months: months,
		patterns: []datePattern{
			{
				name:  "day month year",
				re:    regexp.MustCompile(`(?i)\b(\d{1,2})` + ordinal + `\s+` + month + `,?\s+(\d{4})\b`),
				build: func(m []string, mm map[string]time.Month, _ civil.Date) civil.Date { return mkDate(m[3], mm[strings.ToLower(m[2])], m[1]) },
			},
			{
				name:  "month day year",
				re:    regexp.MustCompile(`(?i)\b` + month + `\s+(\d{1,2})` + ordinal + `,?\s+(\d{4})\b`),
				build: func(m []string, mm map[string]time.Month, _ civil.Date) civil.Date { return mkDate(m[3], mm[strings.ToLower(m[1])], m[2]) },
			},
			{
				name: "mm/dd/yyyy",
				re:   regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`),
				build: func(m []string, _ map[string]time.Month, _ civil.Date) civil.Date {
					mon, _ := strconv.Atoi(m[1])
					return mkDate(m[3], time.Month(mon), m[2])
				},
			},
			{
				name: "yyyy-mm-dd",
				re:   regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`),
				build: func(m []string, _ map[string]time.Month, _ civil.Date) civil.Date {
					mon, _ := strconv.Atoi(m[2])
					return mkDate(m[1], time.Month(mon), m[3])
				},
			},
			{
				name: "month day",
				re:   regexp.MustCompile(`(?i)\b` + month + `\s+(\d{1,2})` + ordinal + `\b`),
				build: func(m []string, mm map[string]time.Month, today civil.Date) civil.Date {
					return mkDate(strconv.Itoa(today.Year), mm[strings.ToLower(m[1])], m[2])
				},
			},
			{
				name: "day month",
				re:   regexp.MustCompile(`(?i)\b(\d{1,2})` + ordinal + `\s+(?:of\s+)?` + month + `\b`),
				build: func(m []string, mm map[string]time.Month, today civil.Date) civil.Date {
					return mkDate(strconv.Itoa(today.Year), mm[strings.ToLower(m[2])], m[1])
				},
			},
		},
	}
}

// Resolve returns the date text refers to, relative to today. Relative
// phrases are checked first, then absolute patterns in priority order.
// A match naming an impossible date is skipped. Without any match the
// result is today.
func (r *DateResolver) Resolve(text string, today civil.Date) civil.Date {
	if d, ok := r.Match(text, today); ok {
		return d
	}
	return today
}

// Match is Resolve without the fallback: ok is false when nothing in text
// names a valid date.
func (r *DateResolver) Match(text string, today civil.Date) (civil.Date, bool) {
	lower := strings.ToLower(text)
	for _, p := range relativePhrases {
		if strings.Contains(lower, p.phrase) {
			return today.AddDays(p.days), true
		}
	}
	for _, p := range r.patterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			if d := p.build(m, r.months, today); d.IsValid() && d.Year > 0 {
				return d, true
			}
		}
	}
	return civil.Date{}, false
}

// Spans returns the byte ranges of every absolute date mention in text,
// valid or not. Numbers inside these ranges are not amounts.
func (r *DateResolver) Spans(text string) [][]int {
	var spans [][]int
	for _, p := range r.patterns {
		spans = append(spans, p.re.FindAllStringIndex(text, -1)...)
	}
	return spans
}

func mkDate(year string, month time.Month, day string) civil.Date {
	y, err := strconv.Atoi(year)
	if err != nil {
		return civil.Date{}
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return civil.Date{}
	}
	return civil.Date{Year: y, Month: month, Day: d}
}
