// Package handler holds the HTTP handlers. Handlers parse the request, call
// one service method and answer through writeJSON or writeError; they never
// touch the database.
package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError so that all error
// bodies share one shape:
//
//	{"error": "not_found", "message": "garden not found with id abc123"}
//
// Errors that carry structured data (a placement conflict, the beds a resize
// would unplace) add a "details" member.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/garden-planner/internal/apperror"
)

// maxBodyBytes caps request bodies. A full plant save for a 200x200 bed fits
// comfortably.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`             // machine-readable kind, e.g. "not_found"
	Message string `json:"message"`           // human-readable description
	Field   string `json:"field,omitempty"`   // offending input field, for validation errors
	Details any    `json:"details,omitempty"` // structured context, see apperror.AppError.Details
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends it.
//
// errors.Is walks the wrap chain, so a service error such as
// fmt.Errorf("updating bed: %w", apperror.NotFound(...)) still maps to 404.
// Errors without an *apperror.AppError are internal and never echoed.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, kind := http.StatusInternalServerError, "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status, kind = http.StatusBadRequest, "validation_error"
		case errors.Is(err, apperror.ErrUnauthorized):
			status, kind = http.StatusUnauthorized, "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status, kind = http.StatusForbidden, "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status, kind = http.StatusNotFound, "not_found"
		case errors.Is(err, apperror.ErrConfirmationRequired):
			status, kind = http.StatusConflict, "confirmation_required"
		case errors.Is(err, apperror.ErrConflict):
			status, kind = http.StatusConflict, "conflict"
		}

		if status == http.StatusInternalServerError {
			slog.Error("unmapped application error", slog.String("error", err.Error()))
			writeJSON(w, status, ErrorResponse{Error: kind, Message: "An internal error occurred"})
			return
		}
		writeJSON(w, status, ErrorResponse{
			Error:   kind,
			Message: appErr.Message,
			Field:   appErr.Field,
			Details: appErr.Details,
		})
		return
	}

	// Raw errors may contain SQL or file paths; log them, answer generically.
	slog.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a single JSON value from the request body into dst.
// Unknown fields are ignored: clients echo listed plants back verbatim,
// joined catalog columns included.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("body", "request body is required")
		}
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	if dec.More() {
		return apperror.ValidationFailed("body", "request body must contain a single JSON value")
	}
	return nil
}
