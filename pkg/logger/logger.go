package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

// Options selects the process logger. Empty fields fall back to the env
// defaults: production logs JSON at info, anything else text at debug.
type Options struct {
	Env    string
	Level  string
	Format string
}

func Init(opts Options) {
	initWith(os.Stdout, opts)
}

func initWith(w io.Writer, opts Options) {
	lvl := slog.LevelDebug
	format := "text"
	if opts.Env == "production" {
		lvl = slog.LevelInfo
		format = "json"
	}
	if opts.Level != "" {
		lvl = parseLevel(opts.Level, lvl)
	}
	if opts.Format == "json" || opts.Format == "text" {
		format = opts.Format
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}

	defaultLogger = slog.New(handler).With("service", "resto-order")
	slog.SetDefault(defaultLogger)
}

func parseLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return fallback
}

func LoggerWrapper() *slog.Logger {
	if defaultLogger == nil {
		// lazy initialize a development logger to avoid nil pointer panics
		Init(Options{Env: "development"})
	}
	return defaultLogger
}
