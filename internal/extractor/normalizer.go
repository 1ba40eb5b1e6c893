package extractor

import (
	"encoding/json"
	"io"
	"strings"
)

// Source records which interpretation of the input produced a draft.
type Source string

const (
	SourceJSON      Source = "json"
	SourceKV        Source = "kv"
	SourceHeuristic Source = "heuristic"
)

// Field names recognised in structured input.
const (
	FieldAmount      = "amount"
	FieldCategory    = "category"
	FieldDate        = "date"
	FieldDescription = "description"

	fieldNote = "note"
)

// Fields is a structured mapping recovered from the input. A key that is
// present with a nil value was explicitly set to null.
type Fields map[string]any

// Has reports whether key was supplied, including as null.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Normalize detects whether text is a JSON object or a key=value list and
// returns the recovered fields. Free text yields nil and SourceHeuristic.
func Normalize(text string) (Fields, Source) {
	if f, ok := parseJSONObject(text); ok {
		return f, SourceJSON
	}
	if f, ok := parseKeyValues(text); ok {
		return f, SourceKV
	}
	return nil, SourceHeuristic
}

func parseJSONObject(text string) (Fields, bool) {
	s := stripCodeFence(text)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	// Trailing content means this was not a single JSON document.
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}

	f := make(Fields, len(obj))
	for k, v := range obj {
		f[strings.ToLower(strings.TrimSpace(k))] = v
	}
	aliasNote(f)
	return f, true
}

func parseKeyValues(text string) (Fields, bool) {
	segments := strings.FieldsFunc(text, func(r rune) bool {
		return r == ';' || r == ',' || r == '\n'
	})

	f := make(Fields)
	for _, seg := range segments {
		k, v, ok := strings.Cut(seg, "=")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		f[k] = strings.TrimSpace(v)
	}
	if len(f) == 0 {
		return nil, false
	}
	aliasNote(f)
	return f, true
}

func aliasNote(f Fields) {
	if note, ok := f[fieldNote]; ok && !f.Has(FieldDescription) {
		f[FieldDescription] = note
	}
}

// stripCodeFence removes a surrounding ``` fence, with or without a
// language tag, as chat clients often wrap pasted JSON in one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
