// Package main is the entry point for the library API server.
//
// main stays minimal:
//  1. read configuration (.env file + environment)
//  2. create the logger
//  3. build the server and run it until SIGINT/SIGTERM
//
// All actual logic lives in internal/.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/sakif/library-api/internal/config"
	"github.com/sakif/library-api/internal/logging"
	"github.com/sakif/library-api/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	// -env-file names a dotenv file that must exist. Without it, ./.env is
	// read if present. Real environment variables always win.
	envFile := flag.String("env-file", "", "path to a .env file (default: ./.env if present)")
	flag.Parse()

	cfg := config.MustLoad(*envFile)

	// === 2. LOGGING ===
	// local → human-readable text at debug, dev/prod → JSON.
	logger := logging.New(cfg.Env, os.Stdout)
	slog.SetDefault(logger)

	// === 3. SERVER ===
	// New opens the database and applies migrations before any request is served.
	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", logging.Err(err))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", logging.Err(err))
		os.Exit(1)
	}
}
