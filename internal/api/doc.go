// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
Package api provides the HTTP surface of File Vault.

Endpoints:

	POST   /api/v1/files                       multipart upload ("file", optional "bucket")
	GET    /api/v1/files/{id}                  file record, clients poll scan state here
	DELETE /api/v1/files/{id}                  remove file, derivatives and record
	GET    /api/v1/backups                     complete backup sets, newest first
	GET    /api/v1/backups/stats               counts and sizes
	POST   /api/v1/backups                     run a backup now
	POST   /api/v1/backups/{name}/restore      restore one set
	GET    /api/v1/antivirus/status            engine availability and breaker state
	POST   /api/v1/antivirus/update            refresh virus signatures
	GET    /health, /health/live               health and liveness
	GET    /metrics                            Prometheus exposition

Every JSON endpoint answers with models.APIResponse. Errors carry a
machine-readable code (VALIDATION_ERROR, NOT_FOUND, CONFLICT,
PAYLOAD_TOO_LARGE, INTERNAL_ERROR, ...).

Middleware stack (outermost first): request id with logging context, real
IP, panic recovery, CORS, then on /api/v1 rate limiting, Prometheus metrics
and gzip compression.

Usage Example:

	handler := api.NewHandler(api.Dependencies{
	    Files:     uploadService,
	    Backups:   backupService,
	    Antivirus: clamav,
	}, "1.0.0")
	router := api.NewRouter(handler, api.DefaultRouterConfig())
	srv := &http.Server{Addr: ":8080", Handler: router.Setup()}
*/
package api
