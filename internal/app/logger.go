package app

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the process-wide logger. Production always emits JSON so
// the log collector can parse it; elsewhere LOG_FORMAT chooses between the
// pretty text handler and JSON. Source locations are attached outside
// production only.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: !cfg.IsProduction()}
	if cfg.IsProduction() || (cfg != nil && cfg.LogFormat == "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
