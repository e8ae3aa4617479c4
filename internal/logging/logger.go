// Package logging configures structured logging with log/slog.
//
// Request handlers get per-request loggers via FromContext, which picks up
// the chi RequestID so every entry for one request can be correlated. The
// import and export engines use WithJob to carry job identity through their
// multi-step runs.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup configures the global slog logger.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns the default logger enriched with the chi request ID
// when the context carries one.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}

	return logger
}

// WithJob returns a logger scoped to one import or export job. Validation
// and apply runs log through this so their entries group by job.
func WithJob(ctx context.Context, jobID, tenantID, entity string) *slog.Logger {
	return FromContext(ctx).With(
		"job_id", jobID,
		"tenant_id", tenantID,
		"entity", entity,
	)
}
