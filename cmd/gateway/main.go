// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MerLin027/PaperSynth/pkg/adapters/httpapi"
	"github.com/MerLin027/PaperSynth/pkg/auth"
	"github.com/MerLin027/PaperSynth/pkg/core/api"
	"github.com/MerLin027/PaperSynth/pkg/core/config"
	"github.com/MerLin027/PaperSynth/pkg/filestore"
	_ "github.com/MerLin027/PaperSynth/pkg/filestore/filesystem"
	_ "github.com/MerLin027/PaperSynth/pkg/filestore/memory"
	_ "github.com/MerLin027/PaperSynth/pkg/filestore/s3"
	"github.com/MerLin027/PaperSynth/pkg/observability/logging"
	"github.com/MerLin027/PaperSynth/pkg/storage"
	"github.com/MerLin027/PaperSynth/pkg/storage/sqlite"
)

var (
	// Version is set via ldflags during build
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	port := flag.Int("port", 8080, "HTTP port to listen on")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("PaperSynth Gateway\nVersion: %s\nBuild Time: %s\n", Version, BuildTime)
		os.Exit(0)
	}

	logger := logging.New(logging.Config{
		Level:  "info",
		Format: "json",
	})
	logger.Info("Starting PaperSynth Gateway",
		"version", Version,
		"build_time", BuildTime)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	if *port != 8080 {
		cfg.Server.Port = *port
	}

	logger = logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	if cfg.Session.Secret == "" {
		logger.Error("Session secret is not configured; set session.secret or PAPERSYNTH_SESSION_SECRET")
		os.Exit(1)
	}
	if cfg.Session.Password == "" {
		logger.Error("Login password is not configured; set session.password or PAPERSYNTH_SESSION_PASSWORD")
		os.Exit(1)
	}

	// Backend client with the static service secret. A 401 clears the
	// credential so later requests go out bare instead of repeating a
	// rejected token.
	serviceToken := auth.NewServiceToken(cfg.Backend.APIToken)
	client := api.NewClient(cfg.Backend.BaseURL, serviceToken, api.Options{
		Timeout:        cfg.Backend.Timeout,
		Logger:         logger,
		OnUnauthorized: serviceToken.Clear,
	})
	logger.Info("Initialized backend client", "base_url", cfg.Backend.BaseURL)

	sessions := auth.NewSessions(cfg.Session.Secret, cfg.Session.Password, cfg.Session.TTL)
	logger.Info("Initialized session manager", "ttl", cfg.Session.TTL)

	// Asset cache, selected by name from the registered backends. Each
	// backend picks the params it needs and ignores the rest.
	cache, err := filestore.New(context.Background(), cfg.AssetCache.Type, map[string]string{
		"root":       cfg.AssetCache.BaseDir,
		"bucket":     cfg.AssetCache.S3Bucket,
		"region":     cfg.AssetCache.S3Region,
		"prefix":     cfg.AssetCache.S3Prefix,
		"endpoint":   cfg.AssetCache.S3Endpoint,
		"access_key": cfg.AssetCache.S3AccessKey,
		"secret_key": cfg.AssetCache.S3SecretKey,
	})
	if err != nil {
		logger.Error("Failed to initialize asset cache", "type", cfg.AssetCache.Type, "error", err)
		os.Exit(1)
	}
	defer cache.Close(context.Background())
	logger.Info("Initialized asset cache", "type", cfg.AssetCache.Type)

	// Processing history
	var history storage.History
	if cfg.History.Enabled {
		h, histErr := sqlite.New(cfg.History.Path)
		if histErr != nil {
			logger.Error("Failed to open history database", "path", cfg.History.Path, "error", histErr)
			os.Exit(1)
		}
		defer h.Close()
		history = h
		logger.Info("Initialized history log", "path", cfg.History.Path)
	}

	handler := httpapi.New(client, sessions, cache, history, logger, cfg.Backend.MaxUploadMB)
	logger.Info("Initialized HTTP adapter")

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
