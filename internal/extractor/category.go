package extractor

import (
	"strings"

	"github.com/forPelevin/gomoji"
	"golang.org/x/text/cases"
)

// Classifier maps free text to exactly one category by keyword lookup.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	rules    []CategoryRule
	fallback string
	names    map[string]string
}

// NewClassifier builds a classifier over an ordered rule table.
func NewClassifier(rules []CategoryRule, fallback string) *Classifier {
	c := &Classifier{
		rules:    make([]CategoryRule, 0, len(rules)),
		fallback: fallback,
		names:    make(map[string]string, len(rules)+1),
	}
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = fold(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		c.rules = append(c.rules, CategoryRule{Name: r.Name, Keywords: kws})
		c.names[fold(r.Name)] = r.Name
	}
	c.names[fold(fallback)] = fallback
	return c
}

// Classify returns the category of the first rule with a keyword contained
// in text, or the fallback category.
func (c *Classifier) Classify(text string) string {
	normalized := fold(gomoji.RemoveEmojis(text))
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(normalized, kw) {
				return r.Name
			}
		}
	}
	return c.fallback
}

// Canonical maps a caller-supplied category name onto the vocabulary:
// exact name match first, then keyword classification of the name.
func (c *Classifier) Canonical(name string) string {
	if v, ok := c.names[fold(strings.TrimSpace(gomoji.RemoveEmojis(name)))]; ok {
		return v
	}
	return c.Classify(name)
}

// Contains reports whether name is a member of the vocabulary.
func (c *Classifier) Contains(name string) bool {
	v, ok := c.names[fold(name)]
	return ok && v == name
}

// Default returns the fallback category.
func (c *Classifier) Default() string {
	return c.fallback
}

// cases.Caser is stateful, so a new one is built per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
