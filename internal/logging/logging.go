// Package logging constructs the slog logger shared by server and client.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New создает slog.Logger с заданным уровнем и форматом.
// format: "json" для продакшена, любое другое значение дает text handler.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// parseLevel преобразует строковый уровень в slog.Level
// Неизвестные значения трактуются как info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
