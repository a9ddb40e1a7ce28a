package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/nielpattin/quizzy-sub001/pkg/config"
)

// New returns a slog.Logger configured for the given service name. Development
// environments get human readable text output; everything else emits JSON.
func New(service string, level slog.Level, env string) *slog.Logger {
	return slog.New(newHandler(os.Stdout, level, env)).With("service", service)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(w io.Writer, level slog.Level, env string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if config.IsDevelopment(env) {
		opts.AddSource = true
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
