// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

// Package verify runs the upload verification pipeline: antivirus scan,
// verdict branch, image derivative generation and the terminal FileRecord
// update.
//
// Persisted scanResult values:
//
//	CLEAN                 scanned, no threat found
//	CLEAN: <warning>      engine unavailable, accepted unscanned
//	INFECTED: <virus>     file deleted
//	SCAN_FAILED: <reason> scan timed out or the engine failed
//	ERROR: <reason>       the pipeline itself failed
package verify
