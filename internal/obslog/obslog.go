// Package obslog sets up the process-wide structured logger, adapted from
// the teacher's cmd/ocr/cmd/root.go setupLogging: a slog.JSONHandler over
// stdout whose level is derived from config.Config's log_level/verbose
// fields, installed as the slog default so every package can just call
// slog.Info/Warn/Error without threading a logger through.
package obslog

import (
	"log/slog"
	"os"

	"github.com/giant-wsi/giant/internal/config"
)

// Level maps a config log-level string to a slog.Level, defaulting to Info
// for an unrecognized value.
func Level(logLevel string) slog.Level {
	switch logLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup installs a JSON-handler slog.Logger as the process default, with
// its level taken from cfg.Verbose (forces debug) or cfg.LogLevel.
func Setup(cfg *config.Config) *slog.Logger {
	level := Level(cfg.LogLevel)
	if cfg.Verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}
