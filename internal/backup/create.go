// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/govportal/filevault/internal/filestore"
	"github.com/govportal/filevault/internal/logging"
	"github.com/govportal/filevault/internal/metrics"
	"github.com/govportal/filevault/internal/models"
	"github.com/govportal/filevault/internal/notify"
	"github.com/govportal/filevault/internal/validation"
)

// backupRun carries the state of one CreateBackup call.
type backupRun struct {
	start   time.Time
	setPath string
	created bool

	entries   []ManifestEntry
	totalSize int64
}

// CreateBackup archives the bytes of every known FileRecord into a new backup set.
//
// Missing or unreadable files are logged and left out of the manifest.
// Failing to create the set, dump the record store or write manifest.json or
// backup-info.json aborts the run: the partial set is deleted and the result
// reports Success=false. After a successful run expired sets are swept.
func (s *Service) CreateBackup(ctx context.Context) *Result {
	if !s.running.CompareAndSwap(false, true) {
		logging.Warn().Msg("Backup requested while another run is in progress")
		metrics.RecordBackupRun("skipped", 0, 0, 0)
		return &Result{Success: false, Error: ErrBackupInProgress.Error()}
	}
	defer s.running.Store(false)

	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	run := &backupRun{start: s.now()}
	log := logging.Ctx(ctx)

	if err := s.buildSet(ctx, run); err != nil {
		return s.failBackup(ctx, run, err)
	}

	duration := s.now().Sub(run.start)
	result := &Result{
		Success:    true,
		BackupPath: run.setPath,
		FilesCount: len(run.entries),
		TotalSize:  run.totalSize,
		DurationMs: duration.Milliseconds(),
	}

	metrics.RecordBackupRun("success", duration, result.FilesCount, result.TotalSize)
	log.Info().
		Str("backup", filepath.Base(run.setPath)).
		Int("files", result.FilesCount).
		Int64("total_size", result.TotalSize).
		Int64("duration_ms", result.DurationMs).
		Msg("Backup completed")

	s.CleanupOldBackups(ctx)

	s.notify(ctx, notify.Success, fmt.Sprintf("Backup completed: %s files, %s",
		humanize.Comma(int64(result.FilesCount)), humanize.Bytes(uint64(result.TotalSize))))

	return result
}

// buildSet performs the structural steps of a run. Any returned error aborts it.
func (s *Service) buildSet(ctx context.Context, run *backupRun) error {
	if err := s.cfg.EnsureBackupDir(); err != nil {
		return err
	}

	run.setPath = filepath.Join(s.cfg.BackupDir, SetName(run.start))
	if err := os.Mkdir(run.setPath, 0o750); err != nil {
		return fmt.Errorf("create backup set directory: %w", err)
	}
	run.created = true

	filesDir := filepath.Join(run.setPath, filesDirName)
	if err := os.Mkdir(filesDir, 0o750); err != nil {
		return fmt.Errorf("create files directory: %w", err)
	}

	records, err := s.store.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("list file records: %w", err)
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("backup cancelled: %w", err)
		}
		s.archiveRecord(ctx, run, filesDir, rec)
	}

	if s.cfg.IncludeDatabase {
		if err := s.dumpStore(ctx, run.setPath); err != nil {
			return err
		}
	}

	manifest := &Manifest{
		Timestamp:  run.start.UTC(),
		FilesCount: len(run.entries),
		TotalSize:  run.totalSize,
		Files:      run.entries,
	}
	if err := writeDocument(filepath.Join(run.setPath, manifestFileName), func(w io.Writer) error {
		return EncodeManifest(w, manifest)
	}); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	info := &BackupInfo{
		Timestamp:       run.start.UTC(),
		FilesCount:      len(run.entries),
		TotalSize:       run.totalSize,
		Duration:        s.now().Sub(run.start).Milliseconds(),
		Compressed:      s.codec != nil,
		IncludeDatabase: s.cfg.IncludeDatabase,
	}
	if err := writeDocument(filepath.Join(run.setPath, backupInfoFileName), func(w io.Writer) error {
		return EncodeBackupInfo(w, info)
	}); err != nil {
		return fmt.Errorf("write backup info: %w", err)
	}

	return nil
}

// archiveRecord archives one record's bytes. Failures are logged and skipped.
func (s *Service) archiveRecord(ctx context.Context, run *backupRun, filesDir string, rec *models.FileRecord) {
	log := logging.Ctx(ctx).With().Str("file_id", rec.ID).Str("filename", rec.Filename).Logger()

	if !validation.IsSafeBasename(rec.Filename) {
		log.Warn().Msg("Skipping file with unsafe filename")
		metrics.RecordBackupFileFailure("invalid")
		return
	}

	archiveName := rec.Filename
	level := 0
	if s.codec != nil {
		archiveName += s.codec.suffix
		level = s.cfg.Compression.Level
	}

	src := s.resolveSourcePath(rec.Path)
	n, err := archiveFile(src, filepath.Join(filesDir, archiveName), s.codec, level)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("path", src).Msg("Source file missing, skipping")
			metrics.RecordBackupFileFailure("missing")
			return
		}
		log.Warn().Err(err).Str("path", src).Msg("Failed to archive file, skipping")
		metrics.RecordBackupFileFailure("io_error")
		return
	}

	run.entries = append(run.entries, ManifestEntry{
		ID:           rec.ID,
		Filename:     rec.Filename,
		OriginalName: rec.OriginalName,
		Size:         n,
		MimeType:     rec.MimeType,
		Bucket:       rec.Bucket,
		CreatedAt:    rec.CreatedAt,
	})
	run.totalSize += n
}

// dumpStore writes database.bak through the store's Dumper.
func (s *Service) dumpStore(ctx context.Context, setPath string) error {
	dumper, ok := s.store.(filestore.Dumper)
	if !ok {
		return fmt.Errorf("record store %T cannot be dumped", s.store)
	}

	err := writeDocument(filepath.Join(setPath, databaseDumpName), func(w io.Writer) error {
		return dumper.Dump(ctx, w)
	})
	if err != nil {
		return fmt.Errorf("dump record store: %w", err)
	}
	return nil
}

// failBackup rolls back a failed run and reports it.
func (s *Service) failBackup(ctx context.Context, run *backupRun, cause error) *Result {
	log := logging.Ctx(ctx)
	duration := s.now().Sub(run.start)

	log.Error().Err(cause).Str("backup_path", run.setPath).Msg("Backup failed")

	if run.created {
		if err := os.RemoveAll(run.setPath); err != nil {
			log.Error().Err(err).Str("backup_path", run.setPath).Msg("Failed to remove incomplete backup set")
		} else {
			metrics.RecordBackupSetDeleted("rollback")
		}
	}

	metrics.RecordBackupRun("failure", duration, 0, 0)
	s.notify(ctx, notify.Failure, fmt.Sprintf("Backup failed: %v", cause))

	return &Result{
		Success:    false,
		FilesCount: 0,
		TotalSize:  0,
		DurationMs: duration.Milliseconds(),
		Error:      cause.Error(),
	}
}
