// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Difficulty is the skill level attached to a snippet.
// Using a named string type (instead of bare string) documents intent and lets
// us attach validation like IsValid() without wrapping every call site.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// IsValid reports whether d is one of the known difficulty levels.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// Difficulties returns the known levels in ascending order.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}
}

// SnippetID is the canonical snippet identifier: a string.
//
// WHY A DEDICATED TYPE?
// The upstream dataset is hand-maintained JSON and has carried snippet IDs as
// BOTH bare numbers (42) and strings ("42") across revisions. Rather than
// sprinkling fallback comparisons everywhere, we normalize once at the decode
// boundary: UnmarshalJSON accepts either representation and stores the
// trimmed string form. Everything downstream compares plain strings.
type SnippetID string

// UnmarshalJSON accepts a JSON string or number and normalizes to a string.
func (id *SnippetID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("model: decoding snippet id: %w", err)
		}
		*id = SnippetID(strings.TrimSpace(s))
		return nil
	}

	// json.Number preserves the exact digits — no float64 round-trip that
	// could mangle a large numeric ID.
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("model: decoding snippet id: %w", err)
	}
	*id = SnippetID(n.String())
	return nil
}

func (id SnippetID) String() string {
	return string(id)
}

// NormalizeSnippetID canonicalizes a caller-supplied snippet identifier:
// whitespace trimmed, and integer forms reduced to their canonical decimal
// string ("042", " 42 " and "42" are the same logical id). Every boundary
// that accepts an id from outside (URL path, query, request body) runs it
// through here so favorites and comments key on one representation.
func NormalizeSnippetID(raw string) SnippetID {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return SnippetID(strconv.FormatInt(n, 10))
	}
	return SnippetID(raw)
}

// Snippet represents one cataloged code example with its metadata.
// Immutable once loaded — the catalog hands out copies, never live pointers
// into its internal slice.
//
// The `json:"..."` tags match the field names in the dataset file, which uses
// snake_case for example_output (the dataset predates this service).
type Snippet struct {
	ID            SnippetID  `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Tags          []string   `json:"tags"`
	Code          string     `json:"code"`
	Category      string     `json:"category"`
	Language      string     `json:"language"`
	Difficulty    Difficulty `json:"difficulty"`
	Premium       bool       `json:"premium"`
	ExampleOutput string     `json:"example_output,omitempty"`
}

// Dataset is the top-level structure of the snippet dataset file.
// Categories and languages are supplied alongside the snippets (they drive the
// filter dropdowns in the UI) rather than being derived on every request.
type Dataset struct {
	Snippets   []Snippet `json:"snippets"`
	Categories []string  `json:"categories"`
	Languages  []string  `json:"languages"`
}
