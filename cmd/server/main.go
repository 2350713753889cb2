// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/govportal/filevault/internal/antivirus"
	"github.com/govportal/filevault/internal/api"
	"github.com/govportal/filevault/internal/backup"
	"github.com/govportal/filevault/internal/config"
	"github.com/govportal/filevault/internal/imageopt"
	"github.com/govportal/filevault/internal/logging"
	"github.com/govportal/filevault/internal/supervisor"
	"github.com/govportal/filevault/internal/supervisor/services"
	"github.com/govportal/filevault/internal/uploads"
	"github.com/govportal/filevault/internal/verify"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.LogConfig())
	logging.Info().Str("version", version).Msg("Starting File Vault with supervisor tree")

	maxUpload, err := cfg.Uploads.MaxSizeBytes()
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid upload size limit")
	}
	logging.Info().
		Str("upload_dir", cfg.Uploads.Dir).
		Str("backup_dir", cfg.Backup.Dir).
		Str("max_upload", humanize.IBytes(uint64(maxUpload))). //nolint:gosec // validated positive
		Bool("in_memory_store", cfg.Store.InMemory).
		Msg("Configuration loaded")

	store, storeCloser, err := openStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize record store")
	}
	defer func() {
		if err := storeCloser.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing record store")
		}
	}()

	notifier, err := buildNotifier(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize notifier")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := antivirus.New(cfg.ClamAVConfig(), nil)
	if engine.IsAvailable(ctx) {
		logging.Info().Str("engine", engine.Status(ctx).Version).Msg("Antivirus engine available")
	} else {
		logging.Warn().Msg("Antivirus engine not available, uploads will be accepted unscanned")
	}

	optimizer := imageopt.New(cfg.OptimizerConfig(), nil)

	pipeline := verify.New(verify.Config{
		MaxConcurrent: cfg.Verify.MaxConcurrent,
		UploadDir:     cfg.Uploads.Dir,
	}, store, engine, optimizer)

	backupSvc, err := backup.NewService(cfg.BackupServiceConfig(), store, notifier)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize backup service")
	}
	backupSvc.SetVerifier(pipeline)

	uploadSvc := uploads.New(uploads.Config{
		UploadDir: cfg.Uploads.Dir,
		MaxSize:   maxUpload,
	}, store, pipeline, optimizer)

	handler := api.NewHandler(api.Dependencies{
		Files:     uploadSvc,
		Backups:   backupSvc,
		Antivirus: engine,
	}, version)

	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mwCfg.RateLimitRequests = cfg.Security.RateLimitReqs
	mwCfg.RateLimitWindow = cfg.Security.RateLimitWindow
	mwCfg.RateLimitDisabled = cfg.Security.RateLimitDisabled
	router := api.NewRouter(handler, mwCfg)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Verify.DrainTimeout + 5*time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	tree.AddWorkerService(services.NewVerifierService(pipeline, cfg.Verify.DrainTimeout))

	if cfg.Backup.ScheduleEnabled {
		scheduler := backup.NewScheduler(backupSvc)
		tree.AddWorkerService(services.NewBackupSchedulerService(scheduler, cfg.Backup.IntervalHours))
	} else {
		logging.Info().Msg("Backup schedule disabled, backups run on demand only")
	}

	if cfg.Antivirus.UpdateInterval > 0 {
		tree.AddWorkerService(services.NewSignatureUpdateService(engine, cfg.Antivirus.UpdateInterval))
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// The channel delivers exactly one value and is never closed.
	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("File Vault stopped")
}
