// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
Package main is the entry point for the File Vault server.

File Vault accepts portal uploads, verifies each one in the background with
ClamAV, generates web derivatives for clean images, and keeps compressed
backup sets of every live file with retention and restore.

# Application Architecture

	RootSupervisor ("filevault")
	├── WorkersSupervisor ("workers")
	│   ├── Verifier (resumes unscanned records, drains on shutdown)
	│   ├── Backup scheduler (BACKUP_SCHEDULE_ENABLED)
	│   └── Signature updater (ANTIVIRUS_UPDATE_INTERVAL > 0)
	└── APISupervisor ("api")
	    └── HTTP Server (chi router)

Component initialization order:

 1. Configuration: koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog, JSON or console
 3. Record store: Badger, or in-memory with STORE_IN_MEMORY=true
 4. Notifier: log, plus webhook when NOTIFY_WEBHOOK_URL is set
 5. Antivirus engine and image optimizer
 6. Verification pipeline
 7. Backup service and scheduler
 8. Upload service and HTTP API
 9. Supervisor tree

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains within
HTTP_SHUTDOWN_TIMEOUT, queued verifications are abandoned (and resumed on the
next start), running scans get VERIFY_DRAIN_TIMEOUT, and a running backup is
allowed to finish.

# Example Usage

	export UPLOAD_DIR=/srv/portal/uploads
	export BACKUP_DIR=/srv/portal/backups
	export STORE_PATH=/srv/portal/records
	export NOTIFY_WEBHOOK_URL=https://hooks.example.gov/filevault
	./filevault
*/
package main
