// Package logging builds the process-wide slog.Logger.
package logging

import (
	"io"
	"log/slog"

	"github.com/sakif/library-api/internal/config"
)

// New returns a logger for env writing to w.
//
//	local → human-readable text, debug level
//	dev   → JSON, debug level
//	prod  → JSON, info level
//
// Unknown values get the prod setup.
func New(env string, w io.Writer) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

// Err is the attribute used for errors in every log line.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
