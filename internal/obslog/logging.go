// Package obslog configures the process-wide structured logger. Adapted
// from libs/go/core/logging/logging.go.
package obslog

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures a global slog logger: JSON if WOLFE_JSON_LOG is
// 1/true/json, text otherwise. Level is controlled by WOLFE_LOG_LEVEL.
func Init(service string) *slog.Logger {
	mode := strings.ToLower(os.Getenv("WOLFE_JSON_LOG"))
	json := mode == "1" || mode == "true" || mode == "json"

	var handler slog.Handler
	opts := &slog.HandlerOptions{AddSource: false, Level: levelFromEnv()}
	if json {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	logger.Info("logging initialized", "json", json)
	return logger
}

func levelFromEnv() slog.Leveler {
	switch strings.ToLower(os.Getenv("WOLFE_LOG_LEVEL")) {
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
