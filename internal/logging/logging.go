// Package logging wires log/slog to a pluggable backend: a plain text
// handler for local runs, and a zap-backed JSON handler for anything else.
// The relay never logs envelope payload or nonce content.
package logging

import "log/slog"

type Backend string

const (
	BackendText Backend = "text"
	BackendZap  Backend = "zap"
)

type Config struct {
	Service   string
	Level     slog.Level
	Backend   Backend
	AddSource bool
}

var def *slog.Logger

// Init builds the default slog.Logger from cfg and installs it via
// slog.SetDefault. Call once at startup, before any component logs.
func Init(cfg Config) {
	if cfg.Service == "" {
		cfg.Service = "ghost-relay"
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendText
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg)
	default:
		h = newTextHandler(cfg)
	}
	h = h.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})

	def = slog.New(h)
	slog.SetDefault(def)
}

// L returns the configured default logger, lazily initializing a text
// backend if Init was never called (useful in tests).
func L() *slog.Logger {
	if def == nil {
		Init(Config{})
	}
	return def
}

// LevelFromString maps the relay's LOG_LEVEL config value onto slog.Level,
// defaulting to info for anything unrecognized.
func LevelFromString(s string) slog.Level {
	switch s {
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
