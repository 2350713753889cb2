// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package backup

import (
	"context"
	"os"
	"time"

	"github.com/govportal/filevault/internal/logging"
	"github.com/govportal/filevault/internal/metrics"
)

// expiredBackups returns the sets recorded strictly before cutoff.
func expiredBackups(sets []BackupSet, cutoff time.Time) []BackupSet {
	var expired []BackupSet
	for _, set := range sets {
		if set.Info.Timestamp.Before(cutoff) {
			expired = append(expired, set)
		}
	}
	return expired
}

// deleteBackups deletes the provided sets and logs the results
func deleteBackups(ctx context.Context, toDelete []BackupSet) (deletedCount int, deletedSize int64) {
	for _, set := range toDelete {
		size, _ := dirSize(set.Path) //nolint:errcheck // Size is informational only
		if err := os.RemoveAll(set.Path); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("backup", set.Name).Msg("Failed to delete backup set")
			continue
		}
		metrics.RecordBackupSetDeleted("retention")
		deletedCount++
		deletedSize += size
	}
	return deletedCount, deletedSize
}

// logRetentionResults logs the results of the retention sweep
func logRetentionResults(ctx context.Context, deletedCount int, deletedSize int64, retentionDays int) {
	if deletedCount > 0 {
		logging.Ctx(ctx).Info().
			Int("deleted_count", deletedCount).
			Float64("deleted_mb", float64(deletedSize)/(1024*1024)).
			Int("retention_days", retentionDays).
			Msg("Retention sweep removed old backups")
	}
}

// CleanupOldBackups deletes every listed backup set older than the retention
// horizon and returns how many were removed. Deletion failures are logged and
// do not stop the sweep.
func (s *Service) CleanupOldBackups(ctx context.Context) int {
	sets, err := s.ListBackups(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Retention sweep could not list backups")
		return 0
	}

	cutoff := s.now().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
	deletedCount, deletedSize := deleteBackups(ctx, expiredBackups(sets, cutoff))
	logRetentionResults(ctx, deletedCount, deletedSize, s.cfg.RetentionDays)

	return deletedCount
}
