// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
Package middleware provides HTTP middleware for the File Vault API.

Key Components:

  - RequestID: X-Request-ID propagation plus request and correlation ids in
    the logging context
  - PrometheusMetrics: request counts, durations and in-flight gauge, labeled
    by chi route pattern so /api/v1/files/{id} is one series
  - Compression: gzip for JSON responses larger than 1 KiB, using
    klauspost/compress/gzhttp

All middleware has the chi signature func(http.Handler) http.Handler:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Compression())

Thread Safety:

All middleware is stateless per request. Prometheus collectors are safe for
concurrent use.
*/
package middleware
