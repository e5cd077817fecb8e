// HTTP handler for the provider catalog.
// GET /api/v1/providers — lists the configured providers, their model
// lists and which need a caller-supplied credential.
package handlers

import (
	"net/http"

	"github.com/paideia-app/paideia/internal/infra/llm"
)

// ProviderHandler serves the model catalog.
type ProviderHandler struct {
	catalog llm.ModelCatalog
}

// NewProviderHandler creates a ProviderHandler.
func NewProviderHandler(catalog llm.ModelCatalog) *ProviderHandler {
	return &ProviderHandler{catalog: catalog}
}

// providerInfo describes one provider in the catalog response.
type providerInfo struct {
	ID                 string   `json:"id"`
	DefaultModel       string   `json:"default_model"`
	Models             []string `json:"models"`
	RequiresCredential bool     `json:"requires_credential"`
}

// providersResponse is the JSON response body for GET /api/v1/providers.
type providersResponse struct {
	Providers []providerInfo `json:"providers"`
}

// List handles GET /api/v1/providers.
func (h *ProviderHandler) List(w http.ResponseWriter, r *http.Request) {
	ids := h.catalog.Providers()
	out := make([]providerInfo, 0, len(ids))
	for _, id := range ids {
		entry := h.catalog[id]
		out = append(out, providerInfo{
			ID:                 id,
			DefaultModel:       entry.Default,
			Models:             entry.Models,
			RequiresCredential: id != llm.ProviderEcho,
		})
	}
	writeJSON(w, http.StatusOK, providersResponse{Providers: out})
}
