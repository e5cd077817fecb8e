// HTTP handler for hybrid corpus retrieval.
// POST /api/v1/retrieval/search — embeds the query terms, fans out over
// the snippet categories and returns the merged ranking.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/paideia-app/paideia/internal/domain/retrieval"
)

// SearchHandler handles retrieval search HTTP requests.
type SearchHandler struct {
	retriever *retrieval.Retriever
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(r *retrieval.Retriever) *SearchHandler {
	return &SearchHandler{retriever: r}
}

// searchRequest is the JSON request body for POST /api/v1/retrieval/search.
type searchRequest struct {
	Query    string `json:"query"`
	Language string `json:"language"`
	Register string `json:"register,omitempty"`
	K        int    `json:"k,omitempty"`
}

// searchResultItem is a single ranked snippet in the search response.
type searchResultItem struct {
	ID       string  `json:"id"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Citation string  `json:"citation,omitempty"`
	Text     string  `json:"text"`
}

// searchResponse is the JSON response body for POST /api/v1/retrieval/search.
type searchResponse struct {
	Results []searchResultItem `json:"results"`
	Query   string             `json:"query"`
}

// Search handles POST /api/v1/retrieval/search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Language == "" {
		writeError(w, http.StatusBadRequest, "language is required")
		return
	}

	got, err := h.retriever.Retrieve(r.Context(), retrieval.Query{
		Terms:    strings.Fields(req.Query),
		Language: req.Language,
		Register: req.Register,
		K:        req.K,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(got.Items))
	for i, it := range got.Items {
		items[i] = searchResultItem{
			ID:       it.Snippet.ID,
			Category: string(it.Snippet.Category),
			Score:    it.Score,
			Citation: it.Snippet.Citation,
			Text:     it.Snippet.Text,
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: items, Query: req.Query})
}
