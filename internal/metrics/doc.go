// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
Package metrics registers File Vault's Prometheus collectors.

Collectors are created with promauto on the default registry and exposed by
internal/api at /metrics.

Backups:
  - filevault_backup_runs_total{result}: success, failure, skipped (lock held)
  - filevault_backup_duration_seconds
  - filevault_backup_files_archived_total, filevault_backup_bytes_archived_total
  - filevault_backup_file_failures_total{reason}: missing, io_error
  - filevault_backup_last_success_timestamp
  - filevault_backup_sets_deleted_total{reason}: retention, rollback

Restores:
  - filevault_restore_runs_total{result}
  - filevault_restore_files_total{result}: restored, skipped

Verification:
  - filevault_scan_verdicts_total{state}: safe, infected, scan_failed, error
  - filevault_scan_duration_seconds
  - filevault_verifications_in_flight
  - filevault_image_derivatives_total{kind,result}

Circuit breaker (antivirus engine):
  - circuit_breaker_state{name}: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total{name,result}
  - circuit_breaker_state_transitions_total{name,from_state,to_state}

HTTP:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}

Example queries:

	# hours since the last good backup
	(time() - filevault_backup_last_success_timestamp) / 3600

	# infected upload rate
	rate(filevault_scan_verdicts_total{state="infected"}[1h])
*/
package metrics
