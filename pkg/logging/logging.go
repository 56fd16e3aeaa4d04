// Package logging configures structured logging with tint on top of log/slog.
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the default slog handler at the level given by LOG_LEVEL.
func Setup() {
	SetupWithLevel(levelFromEnv())
}

// SetupWithLevel installs the default slog handler at an explicit level.
func SetupWithLevel(level slog.Level) {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	))
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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
