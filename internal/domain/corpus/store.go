// Hybrid snippet search: cosine similarity over stored embeddings
// blended with keyword overlap. Language and category filtering happen
// in SQL; scoring happens in Go so the index stays a plain table.
package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50

	// DefaultSemanticWeight blends cosine similarity against keyword
	// overlap when no weight is configured.
	DefaultSemanticWeight = 0.7
)

// SearchInput carries the parameters for one hybrid search query.
type SearchInput struct {
	// QueryVector is the embedded query; nil degrades to keyword-only.
	QueryVector []float32
	// Terms are normalised query keywords.
	Terms []string
	// Language fences the query; it is mandatory.
	Language string
	// Category restricts the query to one snippet category.
	Category Category
	// Limit caps results; 0 selects the default, capped at the maximum.
	Limit int
}

// Scored is one ranked snippet from hybrid search.
type Scored struct {
	Snippet Snippet
	Score   float64
}

// Store is the SQLite-backed snippet index.
type Store struct {
	db             *sql.DB
	semanticWeight float64
}

// NewStore creates a Store over db. A semanticWeight outside (0,1]
// falls back to the default.
func NewStore(db *sql.DB, semanticWeight float64) *Store {
	if semanticWeight <= 0 || semanticWeight > 1 {
		semanticWeight = DefaultSemanticWeight
	}
	return &Store{db: db, semanticWeight: semanticWeight}
}

// Insert writes one snippet row.
func (s *Store) Insert(ctx context.Context, snip Snippet) error {
	var emb any
	if snip.Embedding != nil {
		encoded, err := encodeEmbedding(snip.Embedding)
		if err != nil {
			return fmt.Errorf("corpus: encode embedding: %w", err)
		}
		emb = encoded
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO corpus_snippet
			(id, language, category, text, normalized_text, embedding,
			 embedding_status, citation, license, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snip.ID, snip.Language, string(snip.Category), snip.Text,
		snip.NormalizedText, emb, string(snip.EmbeddingStatus),
		snip.Citation, snip.License,
		snip.CreatedAt.UTC().Format(time.RFC3339),
		snip.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("insert", err)
	}
	return nil
}

// GetSnippets fetches snippets by id, preserving the requested order.
// Unknown ids are skipped; an entirely unknown set returns ErrNotFound.
func (s *Store) GetSnippets(ctx context.Context, ids []string) ([]Snippet, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snippetColumns+` FROM corpus_snippet WHERE id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, storeErr("get", err)
	}
	defer rows.Close() //nolint:errcheck

	byID := make(map[string]Snippet, len(ids))
	for rows.Next() {
		snip, scanErr := scanSnippet(rows)
		if scanErr != nil {
			return nil, storeErr("get scan", scanErr)
		}
		byID[snip.ID] = snip
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("get rows", err)
	}

	out := make([]Snippet, 0, len(ids))
	for _, id := range ids {
		if snip, ok := byID[id]; ok {
			out = append(out, snip)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: none of %d ids", ErrNotFound, len(ids))
	}
	return out, nil
}

// Search runs one hybrid query: candidates are fetched by language and
// category in SQL, then scored in Go as
//
//	semanticWeight*cosine + (1-semanticWeight)*keywordOverlap
//
// ordered by score descending, ties broken by snippet id ascending.
func (s *Store) Search(ctx context.Context, input SearchInput) ([]Scored, error) {
	if input.Language == "" {
		return nil, errors.New("corpus: search requires a language")
	}
	limit := resolveLimit(input.Limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snippetColumns+` FROM corpus_snippet WHERE language = ? AND category = ?`,
		input.Language, string(input.Category))
	if err != nil {
		return nil, storeErr("search", err)
	}
	defer rows.Close() //nolint:errcheck

	var scored []Scored
	for rows.Next() {
		snip, scanErr := scanSnippet(rows)
		if scanErr != nil {
			return nil, storeErr("search scan", scanErr)
		}
		score := s.score(input, snip)
		if score <= 0 {
			continue
		}
		scored = append(scored, Scored{Snippet: snip, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("search rows", err)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Snippet.ID < scored[j].Snippet.ID
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// UpdateEmbedding stores a computed vector and flips the status.
func (s *Store) UpdateEmbedding(ctx context.Context, id string, vec []float32, status EmbeddingStatus) error {
	var emb any
	if vec != nil {
		encoded, err := encodeEmbedding(vec)
		if err != nil {
			return fmt.Errorf("corpus: encode embedding: %w", err)
		}
		emb = encoded
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE corpus_snippet
		SET embedding = ?, embedding_status = ?, updated_at = ?
		WHERE id = ?`,
		emb, string(status), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return storeErr("update embedding", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListPendingEmbeddings returns snippets awaiting the embedder.
func (s *Store) ListPendingEmbeddings(ctx context.Context, limit int) ([]Snippet, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snippetColumns+` FROM corpus_snippet
		 WHERE embedding_status = ? ORDER BY id LIMIT ?`,
		string(EmbeddingStatusPending), limit)
	if err != nil {
		return nil, storeErr("list pending", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []Snippet
	for rows.Next() {
		snip, scanErr := scanSnippet(rows)
		if scanErr != nil {
			return nil, storeErr("list pending scan", scanErr)
		}
		out = append(out, snip)
	}
	return out, rows.Err()
}

// score computes the blended rank for one candidate snippet.
func (s *Store) score(input SearchInput, snip Snippet) float64 {
	var cos float64
	if input.QueryVector != nil && len(snip.Embedding) > 0 {
		cos = float64(cosineSimilarity(input.QueryVector, snip.Embedding))
		if cos < 0 {
			cos = 0
		}
	}
	overlap := keywordOverlap(input.Terms, snip.NormalizedText)

	if input.QueryVector == nil {
		// Keyword-only degradation: the blend would halve every score
		// for no reason, so overlap stands alone.
		return overlap
	}
	return s.semanticWeight*cos + (1-s.semanticWeight)*overlap
}

// keywordOverlap is the fraction of query terms present in the
// normalised snippet text, in [0,1].
func keywordOverlap(terms []string, normalized string) float64 {
	if len(terms) == 0 {
		return 0
	}
	have := make(map[string]bool)
	for _, tok := range strings.Fields(normalized) {
		have[tok] = true
	}
	matched := 0
	for _, term := range terms {
		if have[term] {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// cosineSimilarity computes cosine similarity between two float32
// vectors. Returns 0 on dimension mismatch or zero magnitude.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

// --- row plumbing ---

const snippetColumns = `id, language, category, text, normalized_text,
	embedding, embedding_status, citation, license, created_at, updated_at`

func scanSnippet(rows *sql.Rows) (Snippet, error) {
	var (
		snip                 Snippet
		category, status     string
		embedding            sql.NullString
		createdAt, updatedAt string
	)
	if err := rows.Scan(&snip.ID, &snip.Language, &category, &snip.Text,
		&snip.NormalizedText, &embedding, &status, &snip.Citation,
		&snip.License, &createdAt, &updatedAt); err != nil {
		return Snippet{}, err
	}
	snip.Category = Category(category)
	snip.EmbeddingStatus = EmbeddingStatus(status)
	if embedding.Valid && embedding.String != "" {
		vec, err := decodeEmbedding(embedding.String)
		if err == nil {
			snip.Embedding = vec
		}
		// malformed vectors degrade to keyword-only for this row
	}
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		snip.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		snip.UpdatedAt = ts
	}
	return snip, nil
}

// encodeEmbedding serialises a vector to JSON text: [0.1,0.2] → "[0.1,0.2]".
func encodeEmbedding(vec []float32) (string, error) {
	b, err := json.Marshal(vec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeEmbedding deserialises a JSON text vector back to []float32.
func decodeEmbedding(s string) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal([]byte(s), &vec); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return vec, nil
}

func resolveLimit(limit int) int {
	if limit <= 0 {
		return defaultSearchLimit
	}
	if limit > maxSearchLimit {
		return maxSearchLimit
	}
	return limit
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
