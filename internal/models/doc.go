// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
Package models defines the data structures shared by File Vault's packages.

  - FileRecord: metadata and scan state of one uploaded file, owned by the
    record store (internal/filestore)
  - FileUpdate: partial update applied by Update and Upsert
  - ScanResult: transient antivirus verdict for one file
  - APIResponse / APIError: JSON envelope used by internal/api

Scan state:

A FileRecord is either unscanned (Scanned=false) or terminally scanned
(Scanned=true, with Safe and ScanResult meaningful). There is no persisted
"scanning" state. ScanResult strings have a fixed vocabulary:

	CLEAN
	CLEAN: <warning>        engine unavailable, passed through
	INFECTED: <virus name>  file deleted
	SCAN_FAILED: <reason>   engine error or timeout, file kept
	ERROR: <reason>         pipeline failure

FileRecord.State derives the ScanState from these fields.
*/
package models
