package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/capitalize-ai/agent-platform/internal/llm"
	"github.com/capitalize-ai/agent-platform/internal/model"
	"github.com/capitalize-ai/agent-platform/internal/store"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeValidationError writes field-level validation failures.
func writeValidationError(w http.ResponseWriter, errs model.ValidationErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"error":  "validation failed",
		"fields": errs,
	})
}

// writeDomainError maps store, validation, and LLM errors onto HTTP status
// codes. Unknown errors become an opaque 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var verrs model.ValidationErrors
	if errors.As(err, &verrs) {
		writeValidationError(w, verrs)
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if le, ok := llm.AsError(err); ok {
		switch le.Kind {
		case llm.KindRateLimit:
			writeError(w, http.StatusTooManyRequests, "provider rate limit exceeded")
		case llm.KindInvalidRequest:
			writeError(w, http.StatusUnprocessableEntity, le.Error())
		default:
			writeError(w, http.StatusServiceUnavailable, "provider unavailable")
		}
		return
	}

	writeError(w, http.StatusInternalServerError, "internal server error")
}
