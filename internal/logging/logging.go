// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/abhisek/anuvad/internal/config"
)

// New returns a text or JSON slog logger writing to w at the configured
// level. Unknown levels fall back to info.
func New(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", "anuvad")
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
