package handler

// RESPONSE HELPERS:
// These functions standardise how handlers send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//   {"error": "sync_error", "message": "could not save favorite — the change may not be saved"}
//
// The frontend always knows what fields to expect, regardless of whether
// it's a 400, 401, or 502.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-catalog/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be set BEFORE the body: once Encode writes, the
// headers are sent and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers already sent — all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status and sends it.
//
// This is the single place domain errors (from the service layer) get
// translated to HTTP — the services themselves never know about status codes.
//
// STATUS CHOICES:
//   - ErrValidation       → 400: the caller sent something malformed
//   - ErrUnauthenticated  → 401: sign in first
//   - ErrNotFound         → 404
//   - ErrSync / ErrAuth   → 502: an EXTERNAL dependency (document store,
//     OAuth provider) failed — not this service's fault, and the client may
//     retry
//   - ErrLoad             → 503: the catalog dataset isn't available yet
//
// errors.Is() walks the whole chain via Unwrap(), so a service error like
// fmt.Errorf("toggling: %w", apperror.SyncFailed(...)) still matches ErrSync.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
			errorType = "unauthenticated"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrSync):
			status = http.StatusBadGateway
			errorType = "sync_error"
		case errors.Is(err, apperror.ErrAuth):
			status = http.StatusBadGateway
			errorType = "auth_error"
		case errors.Is(err, apperror.ErrLoad):
			status = http.StatusServiceUnavailable
			errorType = "catalog_unavailable"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error — return a generic 500. Never expose raw internals:
	// the message might contain SQL or file paths.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
