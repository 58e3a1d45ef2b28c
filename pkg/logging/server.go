package logging

import (
	"io"
	"log/slog"
	"strings"
)

// NewServerLogger returns a structured logger for the HTTP server, JSON
// when format is "json" and key=value text otherwise.
func NewServerLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLogLevel(level)}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
