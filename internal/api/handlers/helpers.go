// Shared response helpers and error-to-status mapping for the HTTP
// handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/paideia-app/paideia/internal/domain/corpus"
	"github.com/paideia-app/paideia/internal/domain/lesson"
	"github.com/paideia-app/paideia/internal/infra/llm"
)

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		http.Error(w, `{"error":"failed to encode error response"}`, http.StatusInternalServerError)
	}
}

// statusForError maps domain errors onto HTTP statuses. Unrecognized
// errors become 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, lesson.ErrInvalidRequest),
		errors.Is(err, llm.ErrInvalidModel),
		errors.Is(err, llm.ErrUnknownProvider):
		return http.StatusBadRequest
	case errors.Is(err, llm.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, corpus.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lesson.ErrEmptyLesson):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lesson.ErrUpstreamUnavailable),
		errors.Is(err, corpus.ErrStoreUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeDomainError maps a domain error to its status and writes it.
// Secret material never appears in error values, so the message is safe
// to return verbatim.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}
