// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package api

import (
	"context"
	"io"
	"time"

	"github.com/govportal/filevault/internal/antivirus"
	"github.com/govportal/filevault/internal/backup"
	"github.com/govportal/filevault/internal/cache"
	"github.com/govportal/filevault/internal/models"
)

// FileService is upload intake and deletion.
type FileService interface {
	Save(ctx context.Context, bucket, originalName, mimeType string, r io.Reader) (*models.FileRecord, error)
	Get(ctx context.Context, id string) (*models.FileRecord, error)
	Delete(ctx context.Context, id string) error
	MaxSize() int64
}

// BackupService is the backup engine.
type BackupService interface {
	CreateBackup(ctx context.Context) *backup.Result
	ListBackups(ctx context.Context) ([]backup.BackupSet, error)
	GetBackupStats(ctx context.Context) (*backup.Stats, error)
	ResolveSet(name string) (string, error)
	RestoreBackup(ctx context.Context, setPath string) (*backup.RestoreResult, error)
	IsRunning() bool
}

// AntivirusService reports on and maintains the scan engine.
type AntivirusService interface {
	Status(ctx context.Context) antivirus.Status
	UpdateSignatures(ctx context.Context) bool
}

// Dependencies are the services behind the handlers. Backups and Antivirus
// may be nil; their endpoints then answer 503.
type Dependencies struct {
	Files     FileService
	Backups   BackupService
	Antivirus AntivirusService
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers_files.go: upload, fetch and delete
//   - handlers_backup.go: backup listing, stats, create and restore
//   - handlers_antivirus.go: engine status and signature updates
//   - handlers_health.go: health and liveness
type Handler struct {
	files     FileService
	backups   BackupService
	antivirus AntivirusService
	version   string
	startTime time.Time

	backupSets  *cache.Cache[[]backup.BackupSet]
	backupStats *cache.Cache[*backup.Stats]
}

// backupCacheTTL bounds how stale a listing can be after a scheduled run.
const backupCacheTTL = 30 * time.Second

// NewHandler creates a Handler.
func NewHandler(deps Dependencies, version string) *Handler {
	return &Handler{
		files:     deps.Files,
		backups:   deps.Backups,
		antivirus: deps.Antivirus,
		version:   version,
		startTime: time.Now(),

		backupSets:  cache.New[[]backup.BackupSet](backupCacheTTL),
		backupStats: cache.New[*backup.Stats](backupCacheTTL),
	}
}
