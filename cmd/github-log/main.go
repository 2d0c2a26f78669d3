package main

import (
	"log/slog"
	"os"

	"github.com/nbr23/github-log/internal/cli"
)

func main() {
	logLevel := slog.LevelWarn
	if os.Getenv("GHLOG_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
