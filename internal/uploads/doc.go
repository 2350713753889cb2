// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

// Package uploads accepts new files and removes deleted ones.
//
// Save streams the body to <UploadDir>/<bucket>/<uuid><ext>, creates an
// unscanned FileRecord and hands the id to the verification pipeline. It
// returns as soon as the record exists; clients poll the record for the
// verdict.
//
// Delete removes the stored file, its image derivatives and the record.
package uploads
