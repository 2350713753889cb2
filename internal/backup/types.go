// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package backup

import (
	"errors"
	"time"
)

var (
	// ErrManifestNotFound is returned by RestoreBackup when the set has no manifest.json.
	ErrManifestNotFound = errors.New("manifest not found")

	// ErrBackupInProgress is reported when a backup run is requested while another runs.
	ErrBackupInProgress = errors.New("backup already in progress")

	// ErrInvalidSetName is returned for names that do not follow the backup set convention.
	ErrInvalidSetName = errors.New("invalid backup set name")
)

// Result is returned by CreateBackup. On failure FilesCount and TotalSize are 0.
type Result struct {
	Success    bool   `json:"success"`
	BackupPath string `json:"backupPath,omitempty"`
	FilesCount int    `json:"filesCount"`
	TotalSize  int64  `json:"totalSize"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

// RestoreResult is returned by RestoreBackup.
//
// A restore that restores nothing is still successful as long as the
// manifest could be read.
type RestoreResult struct {
	Success       bool   `json:"success"`
	RestoredFiles int    `json:"restoredFiles"`
	SkippedFiles  int    `json:"skippedFiles"`
	DurationMs    int64  `json:"durationMs"`
	Error         string `json:"error,omitempty"`
}

// BackupSet is one complete, listable backup set.
type BackupSet struct {
	Name string     `json:"name"`
	Path string     `json:"path"`
	Info BackupInfo `json:"info"`
}

// Stats summarizes the listed backup sets.
//
// OnDiskSize sums the bytes the set directories occupy (compressed archives,
// manifests, database dumps). OriginalSize sums BackupInfo.TotalSize, the
// pre-compression bytes of the archived files.
type Stats struct {
	TotalBackups int        `json:"totalBackups"`
	OnDiskSize   int64      `json:"onDiskSize"`
	OriginalSize int64      `json:"originalSize"`
	OldestBackup *time.Time `json:"oldestBackup,omitempty"`
	NewestBackup *time.Time `json:"newestBackup,omitempty"`
}
