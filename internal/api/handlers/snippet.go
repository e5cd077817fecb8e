// HTTP handler for corpus snippet ingestion.
// POST /api/v1/corpus/snippets — validates, chunks passages and stores
// the snippets with embeddings pending.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/paideia-app/paideia/internal/domain/corpus"
)

// SnippetHandler handles corpus ingestion HTTP requests.
type SnippetHandler struct {
	ingest *corpus.IngestService
}

// NewSnippetHandler creates a SnippetHandler.
func NewSnippetHandler(svc *corpus.IngestService) *SnippetHandler {
	return &SnippetHandler{ingest: svc}
}

// createSnippetRequest is the JSON request body for POST /api/v1/corpus/snippets.
type createSnippetRequest struct {
	Language string `json:"language"`
	Category string `json:"category"`
	Text     string `json:"text"`
	Citation string `json:"citation,omitempty"`
	License  string `json:"license,omitempty"`
}

// createdSnippet is a single stored snippet in the ingest response.
type createdSnippet struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Citation string `json:"citation,omitempty"`
	Text     string `json:"text"`
}

// createSnippetResponse is the JSON response body for POST /api/v1/corpus/snippets.
type createSnippetResponse struct {
	Snippets []createdSnippet `json:"snippets"`
}

// Create handles POST /api/v1/corpus/snippets. Passage text longer than
// the chunk window comes back as multiple snippets.
func (h *SnippetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSnippetRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.ingest.Ingest(r.Context(), corpus.CreateSnippetInput{
		Language: req.Language,
		Category: corpus.Category(req.Category),
		Text:     req.Text,
		Citation: req.Citation,
		License:  req.License,
	})
	if err != nil {
		if errors.Is(err, corpus.ErrStoreUnavailable) {
			writeDomainError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out := make([]createdSnippet, len(created))
	for i, s := range created {
		out[i] = createdSnippet{
			ID:       s.ID,
			Category: string(s.Category),
			Citation: s.Citation,
			Text:     s.Text,
		}
	}

	writeJSON(w, http.StatusCreated, createSnippetResponse{Snippets: out})
}
