// Ingestion pipeline: raw source material becomes corpus_snippet rows
// with status pending, then a snippet.ingested event hands off to the
// embedder. Ingestion is an operator/offline path and never runs
// concurrently with itself; serving reads stay safe under WAL.
package corpus

import (
	"context"
	"fmt"
	"time"

	"github.com/paideia-app/paideia/internal/infra/eventbus"
	"github.com/paideia-app/paideia/pkg/uuid"
)

// TopicSnippetIngested is the event bus topic published after a
// successful ingest.
const TopicSnippetIngested = "snippet.ingested"

// IngestedEventPayload carries the new snippet ids for the embedder.
type IngestedEventPayload struct {
	SnippetIDs []string
	Language   string
}

// Passage chunking defaults. Lexicon and grammar snippets are stored
// whole; only passages are long enough to split.
const (
	DefaultChunkSize    = 120
	DefaultChunkOverlap = 20
)

// IngestService creates corpus snippets and announces them.
type IngestService struct {
	store *Store
	bus   eventbus.EventBus
}

// NewIngestService creates an IngestService.
func NewIngestService(store *Store, bus eventbus.EventBus) *IngestService {
	return &IngestService{store: store, bus: bus}
}

// Ingest validates the input, splits passage text into chunks, inserts
// one snippet per chunk with embedding status pending, and publishes a
// snippet.ingested event. Returns the created snippets in chunk order.
func (s *IngestService) Ingest(ctx context.Context, input CreateSnippetInput) ([]Snippet, error) {
	if input.Language == "" {
		return nil, fmt.Errorf("corpus: ingest requires a language")
	}
	if !input.Category.Valid() {
		return nil, fmt.Errorf("corpus: unknown category %q", input.Category)
	}

	chunks := s.split(input)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("corpus: ingest requires non-empty text")
	}

	now := time.Now().UTC()
	snippets := make([]Snippet, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		snip := Snippet{
			ID:              uuid.NewV7().String(),
			Language:        input.Language,
			Category:        input.Category,
			Text:            chunk,
			NormalizedText:  Normalize(chunk),
			EmbeddingStatus: EmbeddingStatusPending,
			Citation:        input.Citation,
			License:         input.License,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.store.Insert(ctx, snip); err != nil {
			return nil, err
		}
		snippets = append(snippets, snip)
		ids = append(ids, snip.ID)
	}

	s.bus.Publish(TopicSnippetIngested, IngestedEventPayload{
		SnippetIDs: ids,
		Language:   input.Language,
	})

	return snippets, nil
}

// split returns the stored units for one input: passages are chunked,
// everything else is stored whole.
func (s *IngestService) split(input CreateSnippetInput) []string {
	if input.Category == CategoryPassage {
		return Chunk(input.Text, DefaultChunkSize, DefaultChunkOverlap)
	}
	if text := Normalize(input.Text); text == "" {
		return nil
	}
	return []string{input.Text}
}
