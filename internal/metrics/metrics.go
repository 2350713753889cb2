// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package metrics

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backup Metrics
	BackupRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filevault_backup_runs_total",
			Help: "Total number of backup runs by result",
		},
		[]string{"result"}, // success, failure, skipped
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filevault_backup_duration_seconds",
			Help:    "Duration of backup runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900, 1800},
		},
	)

	BackupFilesArchived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filevault_backup_files_archived_total",
			Help: "Total number of files archived into backup sets",
		},
	)

	BackupBytesArchived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filevault_backup_bytes_archived_total",
			Help: "Total original bytes archived into backup sets",
		},
	)

	BackupFileFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filevault_backup_file_failures_total",
			Help: "Files skipped during a backup run",
		},
		[]string{"reason"}, // missing, io_error
	)

	BackupLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filevault_backup_last_success_timestamp",
			Help: "Unix timestamp of the last successful backup",
		},
	)

	BackupSetsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filevault_backup_sets_deleted_total",
			Help: "Backup sets removed by retention or rollback",
		},
		[]string{"reason"}, // retention, rollback
	)

	// Restore Metrics
	RestoreRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filevault_restore_runs_total",
			Help: "Total number of restore runs by result",
		},
		[]string{"result"},
	)

	RestoreFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filevault_restore_files_total",
			Help: "Manifest entries processed during restores",
		},
		[]string{"result"}, // restored, skipped
	)

	// Verification Pipeline Metrics
	ScanVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filevault_scan_verdicts_total",
			Help: "Terminal verification verdicts by state",
		},
		[]string{"state"}, // safe, infected, scan_failed, error
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filevault_scan_duration_seconds",
			Help:    "Antivirus scan duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	VerificationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filevault_verifications_in_flight",
			Help: "Verification pipelines currently running",
		},
	)

	DerivativesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filevault_image_derivatives_total",
			Help: "Image derivatives generated by kind and result",
		},
		[]string{"kind", "result"}, // kind: webp, avif, thumbnail
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filevault_uploads_total",
			Help: "Upload intake attempts by result",
		},
		[]string{"result"}, // accepted, too_large, error
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filevault_upload_bytes_total",
			Help: "Bytes accepted by upload intake",
		},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordBackupRun records the outcome of one backup run.
func RecordBackupRun(result string, duration time.Duration, files int, bytes int64) {
	BackupRunsTotal.WithLabelValues(result).Inc()
	if result == "skipped" {
		return
	}
	BackupDuration.Observe(duration.Seconds())
	if result == "success" {
		BackupFilesArchived.Add(float64(files))
		BackupBytesArchived.Add(float64(bytes))
		BackupLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordBackupFileFailure counts one skipped file.
func RecordBackupFileFailure(reason string) {
	BackupFileFailures.WithLabelValues(reason).Inc()
}

// RecordBackupSetDeleted counts one removed backup set.
func RecordBackupSetDeleted(reason string) {
	BackupSetsDeleted.WithLabelValues(reason).Inc()
}

// RecordRestore records the outcome of one restore run.
func RecordRestore(success bool, restored, skipped int) {
	result := "success"
	if !success {
		result = "failure"
	}
	RestoreRunsTotal.WithLabelValues(result).Inc()
	RestoreFilesTotal.WithLabelValues("restored").Add(float64(restored))
	RestoreFilesTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordScan records one terminal verification verdict.
func RecordScan(state string, duration time.Duration) {
	ScanVerdicts.WithLabelValues(state).Inc()
	if duration > 0 {
		ScanDuration.Observe(duration.Seconds())
	}
}

// TrackVerification tracks in-flight verification pipelines.
func TrackVerification(inc bool) {
	if inc {
		VerificationsInFlight.Inc()
	} else {
		VerificationsInFlight.Dec()
	}
}

// RecordDerivative records one derivative generation attempt.
func RecordDerivative(kind string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	DerivativesTotal.WithLabelValues(kind, result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpload records one upload intake attempt.
func RecordUpload(result string, size int64) {
	UploadsTotal.WithLabelValues(result).Inc()
	if result == "accepted" {
		UploadBytes.Add(float64(size))
	}
}

// RecordCircuitBreakerTransition updates state gauges on a breaker transition.
func RecordCircuitBreakerTransition(name string, from, to gobreaker.State) {
	CircuitBreakerState.WithLabelValues(name).Set(StateToFloat(to))
	CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
}

// StateToFloat converts circuit breaker state to numeric value for metrics
func StateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
