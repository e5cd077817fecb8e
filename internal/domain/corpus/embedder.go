// Embedding pipeline: an Embedder turns text into vectors; the
// EmbedderService consumes snippet.ingested events and fills in the
// embedding column. The default embedder is a deterministic feature
// hash so retrieval works offline and reproduces exactly in tests.
package corpus

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/paideia-app/paideia/internal/infra/eventbus"
)

// Embedder produces one vector per input text. Implementations must be
// deterministic for a given input or retrieval ranking drifts between
// runs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// HashingDims is the dimensionality of the feature-hash embedder.
const HashingDims = 256

// HashingEmbedder is a deterministic feature-hash embedder: each token
// of the normalised text increments one of HashingDims buckets, and the
// result is L2-normalised. It captures lexical overlap only, which is
// adequate for corpus snippets whose vocabulary is the signal.
type HashingEmbedder struct{}

// NewHashingEmbedder returns the deterministic default embedder.
func NewHashingEmbedder() *HashingEmbedder {
	return &HashingEmbedder{}
}

// Embed implements Embedder. Never fails; an empty text yields a zero
// vector.
func (e *HashingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = hashVector(text)
	}
	return out, nil
}

func hashVector(text string) []float32 {
	vec := make([]float32, HashingDims)
	for _, tok := range strings.Fields(Normalize(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok)) //nolint:errcheck
		vec[h.Sum32()%HashingDims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

// EmbedderService fills in embeddings for ingested snippets. It is
// driven by snippet.ingested events and by an explicit pending scan at
// startup (events are fire-and-forget, the scan catches drops).
type EmbedderService struct {
	store    *Store
	embedder Embedder
	log      *zap.Logger
}

// NewEmbedderService creates an EmbedderService.
func NewEmbedderService(store *Store, embedder Embedder, log *zap.Logger) *EmbedderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &EmbedderService{store: store, embedder: embedder, log: log}
}

// Start subscribes to TopicSnippetIngested and embeds each announced
// snippet. Runs in the calling goroutine — launch with
// go svc.Start(ctx, bus). Stops when ctx is cancelled.
func (s *EmbedderService) Start(ctx context.Context, bus eventbus.EventBus) {
	ch := bus.Subscribe(TopicSnippetIngested)
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-ch:
			payload, ok := evt.Payload.(IngestedEventPayload)
			if !ok {
				continue
			}
			if err := s.EmbedSnippets(ctx, payload.SnippetIDs); err != nil {
				s.log.Warn("embed after ingest failed",
					zap.Strings("snippet_ids", payload.SnippetIDs),
					zap.Error(err))
			}
		}
	}
}

// EmbedSnippets embeds the given snippets and stores the vectors.
// A snippet that fails to store is marked failed; the batch continues.
func (s *EmbedderService) EmbedSnippets(ctx context.Context, ids []string) error {
	snips, err := s.store.GetSnippets(ctx, ids)
	if err != nil {
		return err
	}

	texts := make([]string, len(snips))
	for i, snip := range snips {
		texts[i] = snip.Text
	}
	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		for _, snip := range snips {
			_ = s.store.UpdateEmbedding(ctx, snip.ID, nil, EmbeddingStatusFailed) //nolint:errcheck
		}
		return err
	}

	for i, snip := range snips {
		if err := s.store.UpdateEmbedding(ctx, snip.ID, vecs[i], EmbeddingStatusReady); err != nil {
			s.log.Warn("store embedding failed", zap.String("snippet_id", snip.ID), zap.Error(err))
		}
	}
	return nil
}

// EmbedPending drains snippets still marked pending, in batches. Stops
// when a batch makes no progress (every update failed) to avoid spinning.
func (s *EmbedderService) EmbedPending(ctx context.Context) error {
	lastFirst := ""
	for {
		pending, err := s.store.ListPendingEmbeddings(ctx, defaultSearchLimit)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		if pending[0].ID == lastFirst {
			return nil
		}
		lastFirst = pending[0].ID

		ids := make([]string, len(pending))
		for i, snip := range pending {
			ids[i] = snip.ID
		}
		if err := s.EmbedSnippets(ctx, ids); err != nil {
			return err
		}
	}
}
