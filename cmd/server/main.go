// Package main is the entry point for the placeshare server.
//
// The main package is kept minimal — its job is to:
// 1. Read configuration (env vars, with an optional .env for local dev)
// 2. Create the shared dependencies (logger)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server,
// internal/handler, etc.). The cmd/ directory is a Go convention for
// executable entry points; a project with multiple binaries would have
// cmd/server, cmd/migrate, and so on.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/placeshare/internal/config"
	"github.com/sakif/placeshare/internal/server"
)

func main() {
	// Structured text logs to stdout. In production you'd raise the
	// level to Info or swap in the JSON handler.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Ensure the database directory exists before SQLite tries to create
	// the file inside it.
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
