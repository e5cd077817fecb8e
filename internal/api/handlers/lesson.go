// HTTP handler for lesson generation.
// POST /api/v1/lessons — runs the full retrieve → assemble → generate →
// parse pipeline and returns a validated lesson.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/paideia-app/paideia/internal/domain/lesson"
)

// LessonHandler handles lesson generation HTTP requests.
type LessonHandler struct {
	service *lesson.Service
}

// NewLessonHandler creates a LessonHandler.
func NewLessonHandler(svc *lesson.Service) *LessonHandler {
	return &LessonHandler{service: svc}
}

// Generate handles POST /api/v1/lessons. The request body is the
// lesson.Request JSON contract; any credential in it lives only for the
// duration of this call and is never written to the response or logs.
func (h *LessonHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req lesson.Request
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	got, err := h.service.Generate(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, got)
}
