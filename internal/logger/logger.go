// Package logger configures the process-wide slog logger: JSON output for
// production, human-readable text everywhere else.
package logger

import (
	"log/slog"
	"os"
)

// Setup builds the root logger for the given environment and installs it as
// the slog default. Components receive it by injection from main.
func Setup(appEnv string) *slog.Logger {
	var handler slog.Handler
	switch appEnv {
	case "production", "prod":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
