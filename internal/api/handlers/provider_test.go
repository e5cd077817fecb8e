package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paideia-app/paideia/internal/infra/llm"
)

func TestProviderHandler_ListsCatalog(t *testing.T) {
	t.Parallel()

	h := NewProviderHandler(llm.DefaultCatalog())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp struct {
		Providers []struct {
			ID                 string   `json:"id"`
			DefaultModel       string   `json:"default_model"`
			Models             []string `json:"models"`
			RequiresCredential bool     `json:"requires_credential"`
		} `json:"providers"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Providers) != 3 {
		t.Fatalf("got %d providers, want 3", len(resp.Providers))
	}
	// Sorted by id: echo, gemini, openai.
	if resp.Providers[0].ID != "echo" || resp.Providers[0].RequiresCredential {
		t.Errorf("echo entry = %+v, want credential-free", resp.Providers[0])
	}
	for _, p := range resp.Providers[1:] {
		if !p.RequiresCredential {
			t.Errorf("provider %q should require a credential", p.ID)
		}
		if p.DefaultModel == "" || len(p.Models) == 0 {
			t.Errorf("provider %q has an empty model list", p.ID)
		}
	}
}
