package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/orientamada/orientamada/internal/config"
)

// ParseLevel maps a config string to a slog level, info by default / Convertit le niveau configuré
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// New builds the console handler, fanned out to Loki when enabled / Construit le handler console, et Loki si activé
func New(conf *config.Config, w io.Writer) (*slog.Logger, func() error) {
	level := ParseLevel(conf.Logging.Level)

	var console slog.Handler
	if strings.EqualFold(conf.Logging.Format, "json") {
		console = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, AddSource: conf.IsProduction()})
	} else {
		console = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}

	if !conf.Logging.LokiEnabled {
		return slog.New(console), func() error { return nil }
	}

	loki := NewLokiHandler(conf.Logging.LokiURL, conf.Logging.LokiLabels, conf.Logging.LokiBatchSize, level)
	return slog.New(Fanout(console, loki)), loki.Close
}

// Setup installs the logger as the slog default / Installe le logger par défaut
func Setup(conf *config.Config, w io.Writer) func() error {
	logger, closeFn := New(conf, w)
	slog.SetDefault(logger)
	slog.Info("logging configured",
		"level", ParseLevel(conf.Logging.Level).String(),
		"format", conf.Logging.Format,
		"loki_enabled", conf.Logging.LokiEnabled,
	)
	return closeFn
}

// fanout writes each record to every handler / Écrit chaque enregistrement sur tous les handlers
type fanout []slog.Handler

// Fanout combines handlers; the first error is returned after all ran / Combine plusieurs handlers
func Fanout(handlers ...slog.Handler) slog.Handler {
	return fanout(handlers)
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
