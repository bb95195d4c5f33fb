package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a JSON logger tagged with the service name and installs it as
// the process default.
func New(service, level string) *slog.Logger {
	return NewWithWriter(os.Stdout, service, level)
}

func NewWithWriter(w io.Writer, service, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	l := slog.New(h).With("service", service)
	slog.SetDefault(l)
	return l
}

// Order returns a child logger carrying the order correlation fields used by
// the checkout lifecycle.
func Order(l *slog.Logger, orderID, step string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("order_id", orderID, "step", step)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
