// Package main is the entry point for the snippet catalog server.
//
// The main package is kept minimal — its job is to:
//  1. Read configuration (env vars, with .env support for development)
//  2. Create the logger
//  3. Hand everything to internal/server and start
//
// All actual logic lives in imported packages. The cmd/ directory is the Go
// convention for executable entry points; a project can grow more of them
// (cmd/migrate, cmd/cli) without the packages underneath changing.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/sakif/snippet-catalog/internal/server"
)

func main() {
	// .env is a development convenience — a missing file is fine, real
	// deployments set the environment directly.
	_ = godotenv.Load()

	// Log levels (least to most severe): Debug → Info → Warn → Error.
	// LOG_LEVEL=debug turns on the chatty resync/toggle logging.
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	// DB_PATH overrides for production deployments,
	// e.g. DB_PATH=/var/lib/snippet-catalog/catalog.db
	dbPath := "data/catalog.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// The dataset is an external document: DATASET_URL for a hosted one,
	// DATASET_PATH for a local file. URL wins when both are set.
	datasetURL := os.Getenv("DATASET_URL")
	datasetPath := os.Getenv("DATASET_PATH")
	if datasetURL == "" && datasetPath == "" {
		datasetPath = "data/snippets.json"
	}

	// JWT_SECRET must be a long random string. Generate one with:
	//   JWT_SECRET=$(openssl rand -hex 32)
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET is not set — refusing to start without a signing key")
		os.Exit(1)
	}

	cfg := server.Config{
		Port:        port,
		DBPath:      dbPath,
		DatasetURL:  datasetURL,
		DatasetPath: datasetPath,
		JWTSecret:   jwtSecret,
		GitHub: server.OAuthCredentials{
			ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
			ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			CallbackURL:  callbackURL("GITHUB_CALLBACK_URL", "github", port),
		},
		Google: server.OAuthCredentials{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			CallbackURL:  callbackURL("GOOGLE_CALLBACK_URL", "google", port),
		},
		PremiumDefault:        os.Getenv("PREMIUM_DEFAULT") == "true",
		RollbackFailedToggles: os.Getenv("ROLLBACK_FAILED_TOGGLES") == "true",
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

// callbackURL reads the provider's callback override, defaulting to the
// local development URL.
func callbackURL(envVar, provider string, port int) string {
	if url := os.Getenv(envVar); url != "" {
		return url
	}
	return fmt.Sprintf("http://localhost:%d/auth/%s/callback", port, provider)
}
