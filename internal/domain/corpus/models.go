// Package corpus defines the domain types for the snippet knowledge
// store: curated source material (lexicon entries, grammar notes,
// passages) indexed for hybrid retrieval.
package corpus

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// Category classifies a snippet by the kind of material it carries.
type Category string

const (
	CategoryLexicon Category = "lexicon"
	CategoryGrammar Category = "grammar"
	CategoryPassage Category = "passage"
)

// Categories lists all snippet categories in retrieval fan-out order.
func Categories() []Category {
	return []Category{CategoryLexicon, CategoryGrammar, CategoryPassage}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryLexicon, CategoryGrammar, CategoryPassage:
		return true
	}
	return false
}

// EmbeddingStatus tracks a snippet through the embedding pipeline.
type EmbeddingStatus string

const (
	EmbeddingStatusPending EmbeddingStatus = "pending"
	EmbeddingStatusReady   EmbeddingStatus = "ready"
	EmbeddingStatusFailed  EmbeddingStatus = "failed"
)

// Snippet is the searchable unit of source material.
//
// DB table: corpus_snippet (migration 001)
type Snippet struct {
	ID              string
	Language        string // language code: "la", "grc"
	Category        Category
	Text            string
	NormalizedText  string
	Embedding       []float32 // nil until the embedder has run
	EmbeddingStatus EmbeddingStatus
	Citation        string
	License         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateSnippetInput carries the fields for ingesting one snippet.
type CreateSnippetInput struct {
	Language string
	Category Category
	Text     string
	Citation string
	License  string
}

// ErrStoreUnavailable marks a connectivity failure against the corpus
// index. Callers retry once, then surface the error.
var ErrStoreUnavailable = errors.New("corpus store unavailable")

// ErrNotFound marks a snippet id with no row.
var ErrNotFound = errors.New("snippet not found")

// Normalize lowercases text and folds punctuation to spaces, producing
// the keyword-matching form stored alongside the raw text. Combining
// marks are dropped so accented and bare forms match (relevant for
// polytonic Greek and macron-marked Latin).
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.Is(unicode.Mn, r):
			// combining mark: drop
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
