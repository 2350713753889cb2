// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
Package supervisor provides process supervision for File Vault using suture v4.

# Overview

Long-running services are organized into two layers:

	RootSupervisor ("filevault")
	├── WorkersSupervisor ("workers")
	│   ├── BackupSchedulerService (if BACKUP_SCHEDULE_ENABLED)
	│   ├── VerifierService
	│   └── SignatureUpdateService (if ANTIVIRUS_UPDATE_INTERVAL > 0)
	└── APISupervisor ("api")
	    └── HTTPServerService

A worker that returns an error or panics is restarted with suture's backoff.
The API layer keeps serving while workers restart.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddWorkerService(services.NewVerifierService(pipeline, 30*time.Second))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor tree stopped with error")
	}

# Logging

Supervisor events (service start, failure, backoff, restart) are written
through sutureslog into the zerolog-backed slog handler from
internal/logging.
*/
package supervisor
