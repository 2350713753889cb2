// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package backup

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/govportal/filevault/internal/logging"
	"github.com/govportal/filevault/internal/metrics"
	"github.com/govportal/filevault/internal/models"
	"github.com/govportal/filevault/internal/notify"
)

// RestoreBackup copies every file listed in the set's manifest back to
// <UploadDir>/<bucket>/<filename> and upserts its FileRecord.
//
// A missing manifest returns ErrManifestNotFound; an unreadable one returns
// its decode error. Both come with a failed result. Entries that are invalid,
// missing from files/ or fail to extract are logged and skipped. Running the
// same restore twice leaves the same files and records as running it once.
func (s *Service) RestoreBackup(ctx context.Context, setPath string) (*RestoreResult, error) {
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	log := logging.Ctx(ctx).With().Str("backup", filepath.Base(setPath)).Logger()
	start := s.now()
	result := &RestoreResult{}

	manifest, invalid, err := readManifest(setPath)
	if err != nil {
		result.DurationMs = s.now().Sub(start).Milliseconds()
		result.Error = err.Error()
		log.Error().Err(err).Msg("Restore failed")
		metrics.RecordRestore(false, 0, 0)
		s.notify(ctx, notify.Failure, fmt.Sprintf("Restore of %s failed: %v", filepath.Base(setPath), err))
		if errors.Is(err, ErrManifestNotFound) {
			return result, ErrManifestNotFound
		}
		return result, fmt.Errorf("read manifest: %w", err)
	}

	for _, inv := range invalid {
		log.Warn().Err(inv.Err).Int("entry", inv.Index).Msg("Skipping invalid manifest entry")
		result.SkippedFiles++
	}

	// Without a readable backup-info.json every suffix is tried.
	var compressed *bool
	if info, err := readBackupInfo(setPath); err == nil {
		compressed = &info.Compressed
	} else {
		log.Warn().Err(err).Msg("Backup info unreadable, probing archive suffixes")
	}

	filesDir := filepath.Join(setPath, filesDirName)
	for i := range manifest.Files {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Msg("Restore interrupted")
			break
		}
		if s.restoreEntry(ctx, filesDir, &manifest.Files[i], compressed) {
			result.RestoredFiles++
		} else {
			result.SkippedFiles++
		}
	}

	result.Success = true
	result.DurationMs = s.now().Sub(start).Milliseconds()
	metrics.RecordRestore(true, result.RestoredFiles, result.SkippedFiles)

	log.Info().
		Int("restored", result.RestoredFiles).
		Int("skipped", result.SkippedFiles).
		Int64("duration_ms", result.DurationMs).
		Msg("Restore completed")
	s.notify(ctx, notify.Success, fmt.Sprintf("Restore of %s completed: %d files restored, %d skipped",
		filepath.Base(setPath), result.RestoredFiles, result.SkippedFiles))

	return result, nil
}

// restoreEntry restores one manifest entry and reports whether it succeeded.
func (s *Service) restoreEntry(ctx context.Context, filesDir string, entry *ManifestEntry, compressed *bool) bool {
	log := logging.Ctx(ctx).With().Str("file_id", entry.ID).Str("filename", entry.Filename).Logger()

	archivePath, c, ok := locateArchive(filesDir, entry.Filename, compressed)
	if !ok {
		log.Warn().Msg("Archived file not found, skipping")
		return false
	}

	target := filepath.Join(s.cfg.UploadDir, entry.Bucket, entry.Filename)
	if _, err := extractFile(archivePath, target, c); err != nil {
		log.Warn().Err(err).Str("target", target).Msg("Failed to restore file, skipping")
		return false
	}

	rec, err := s.store.Upsert(ctx, entry.ID, &models.FileRecord{
		ID:           entry.ID,
		Filename:     entry.Filename,
		OriginalName: entry.OriginalName,
		MimeType:     entry.MimeType,
		Size:         entry.Size,
		Path:         target,
		Bucket:       entry.Bucket,
		CreatedAt:    entry.CreatedAt,
	}, models.FileUpdate{Path: &target})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to register restored file")
		return false
	}

	if !rec.Scanned && s.verifier != nil {
		s.verifier.Submit(rec.ID)
	}
	return true
}
