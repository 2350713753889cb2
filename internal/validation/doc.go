// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared by the process. On top of the
// built-in tags it registers two tags used across File Vault:
//
//   - bucket: a lowercase bucket label such as "news" or "department-docs"
//   - basename: a single path element (no separators, not "." or "..")
//
// Manifest and BackupInfo records read from disk are validated with these
// tags before a restore trusts them:
//
//	type ManifestEntry struct {
//	    ID       string `json:"id" validate:"required"`
//	    Filename string `json:"filename" validate:"required,basename"`
//	    Bucket   string `json:"bucket" validate:"required,bucket"`
//	}
//
//	if verr := validation.ValidateStruct(&entry); verr != nil {
//	    // skip just this entry
//	}
//
// Errors carry the failing field and tag, and convert to the API error
// envelope with ToAPIError.
package validation
