// Package retrieval fans a query out across the corpus categories and
// merges the results into one ranked context set for prompt assembly.
package retrieval

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/paideia-app/paideia/internal/domain/corpus"
)

// maxConcurrentSearches bounds the per-request fan-out.
const maxConcurrentSearches = 3

// perCategoryLimit is how many candidates each category contributes
// before the merge.
const perCategoryLimit = 10

// Query is one retrieval request.
type Query struct {
	// Terms are raw query keywords; they are normalised here.
	Terms []string
	// Language fences every store query. Mandatory.
	Language string
	// Register biases nothing at this layer but travels with the query
	// for logging ("literary", "colloquial").
	Register string
	// K caps the merged result count; 0 selects the default.
	K int
}

const defaultK = 8

// Result is the merged, ranked retrieval outcome. An empty Items slice
// is a valid degraded result, not an error.
type Result struct {
	Items []corpus.Scored
}

// TopSnippet returns the highest-ranked snippet, if any.
func (r *Result) TopSnippet() (corpus.Snippet, bool) {
	if r == nil || len(r.Items) == 0 {
		return corpus.Snippet{}, false
	}
	return r.Items[0].Snippet, true
}

// Searcher is the slice of the corpus store the retriever needs.
type Searcher interface {
	Search(ctx context.Context, input corpus.SearchInput) ([]corpus.Scored, error)
}

// Retriever runs hybrid searches across all categories.
type Retriever struct {
	store    Searcher
	embedder corpus.Embedder
	log      *zap.Logger
}

// New creates a Retriever.
func New(store Searcher, embedder corpus.Embedder, log *zap.Logger) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{store: store, embedder: embedder, log: log}
}

// Retrieve embeds the query once, searches every category concurrently
// (bounded, fully joined), merges with per-snippet dedup keeping the
// highest score, and returns the top K ordered by score descending then
// snippet id ascending.
func (r *Retriever) Retrieve(ctx context.Context, q Query) (*Result, error) {
	if q.Language == "" {
		return nil, errors.New("retrieval: query requires a language")
	}
	k := q.K
	if k <= 0 {
		k = defaultK
	}
	terms := normalizeTerms(q.Terms)

	var queryVec []float32
	if r.embedder != nil && len(terms) > 0 {
		vecs, err := r.embedder.Embed(ctx, []string{strings.Join(terms, " ")})
		if err != nil {
			// Degrade to keyword-only rather than failing retrieval.
			r.log.Warn("query embedding failed", zap.Error(err))
		} else if len(vecs) == 1 {
			queryVec = vecs[0]
		}
	}

	categories := corpus.Categories()
	perCategory := make([][]corpus.Scored, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSearches)
	for i, cat := range categories {
		g.Go(func() error {
			scored, err := r.searchWithRetry(gctx, corpus.SearchInput{
				QueryVector: queryVec,
				Terms:       terms,
				Language:    q.Language,
				Category:    cat,
				Limit:       perCategoryLimit,
			})
			if err != nil {
				return err
			}
			perCategory[i] = scored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := merge(perCategory, k)
	r.log.Debug("retrieval complete",
		zap.String("language", q.Language),
		zap.String("register", q.Register),
		zap.Int("results", len(merged)))
	return &Result{Items: merged}, nil
}

// searchWithRetry retries exactly once on a store connectivity failure.
func (r *Retriever) searchWithRetry(ctx context.Context, input corpus.SearchInput) ([]corpus.Scored, error) {
	scored, err := r.store.Search(ctx, input)
	if err == nil || !errors.Is(err, corpus.ErrStoreUnavailable) {
		return scored, err
	}
	r.log.Warn("store unavailable, retrying search",
		zap.String("category", string(input.Category)), zap.Error(err))
	return r.store.Search(ctx, input)
}

// merge joins the per-category result sets: dedup by snippet id keeping
// the highest score, order score desc then id asc, cap at k.
func merge(sets [][]corpus.Scored, k int) []corpus.Scored {
	best := make(map[string]corpus.Scored)
	for _, set := range sets {
		for _, sc := range set {
			if prev, ok := best[sc.Snippet.ID]; !ok || sc.Score > prev.Score {
				best[sc.Snippet.ID] = sc
			}
		}
	}

	out := make([]corpus.Scored, 0, len(best))
	for _, sc := range best {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Snippet.ID < out[j].Snippet.ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// normalizeTerms lowercases and folds each term, dropping empties and
// duplicates while preserving order.
func normalizeTerms(terms []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range terms {
		for _, norm := range strings.Fields(corpus.Normalize(t)) {
			if norm == "" || seen[norm] {
				continue
			}
			seen[norm] = true
			out = append(out, norm)
		}
	}
	return out
}
