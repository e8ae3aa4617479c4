package web

// errors.go maps pipeline errors onto HTTP responses. Technical detail is
// logged server-side; clients get the sentinel message and a status code they
// can branch on.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Hugoguevara91/eagl-backend/internal/bulk"
	"github.com/Hugoguevara91/eagl-backend/internal/logging"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError logs err and writes the matching JSON error response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
	)

	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// statusFor picks the HTTP status for a pipeline error.
func statusFor(err error) int {
	var stateErr *bulk.StateError
	var shapeErr *bulk.ShapeError
	switch {
	case errors.Is(err, bulk.ErrUnknownEntity),
		errors.Is(err, bulk.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, bulk.ErrUnsupportedFormat),
		errors.Is(err, bulk.ErrEmptyFile),
		errors.As(err, &shapeErr):
		return http.StatusBadRequest
	case errors.Is(err, bulk.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, bulk.ErrDuplicateFile),
		errors.Is(err, bulk.ErrImportInFlight),
		errors.Is(err, bulk.ErrEntityImportActive),
		errors.As(err, &stateErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; nothing to do but log.
		slog.Error("json encode error", "error", err)
	}
}
