// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package backup

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/govportal/filevault/internal/logging"
)

const setNamePrefix = "backup-"

// setTimestampLayout is ISO-8601 in UTC with millisecond precision.
const setTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// setNamePattern matches names produced by SetName.
var setNamePattern = regexp.MustCompile(`^backup-\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}-\d{3}Z$`)

// SetName returns the directory name of a backup set started at t:
// "backup-" plus the ISO-8601 UTC timestamp with ':' and '.' replaced by '-'.
// Names sort lexicographically in creation order.
//
//	SetName(2026-10-19 02:00:00 UTC) == "backup-2026-10-19T02-00-00-000Z"
func SetName(t time.Time) string {
	stamp := t.UTC().Format(setTimestampLayout)
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return setNamePrefix + stamp
}

// IsSetName reports whether name follows the backup set naming convention.
func IsSetName(name string) bool {
	return setNamePattern.MatchString(name)
}

// ResolveSet maps a set name to its path under the backup directory.
func (s *Service) ResolveSet(name string) (string, error) {
	if !IsSetName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSetName, name)
	}
	return filepath.Join(s.cfg.BackupDir, name), nil
}

// ListBackups returns every complete backup set, newest first.
//
// A directory is listed only if its name follows the convention and it holds
// a readable backup-info.json. Sets without one are still being written or
// were abandoned; malformed ones are logged and skipped.
func (s *Service) ListBackups(ctx context.Context) ([]BackupSet, error) {
	entries, err := os.ReadDir(s.cfg.BackupDir)
	if os.IsNotExist(err) {
		return []BackupSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	sets := make([]BackupSet, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !IsSetName(entry.Name()) {
			continue
		}

		setPath := filepath.Join(s.cfg.BackupDir, entry.Name())
		info, err := readBackupInfo(setPath)
		if err != nil {
			if os.IsNotExist(err) {
				logging.Debug().Str("backup", entry.Name()).Msg("Skipping incomplete backup set")
			} else {
				logging.Warn().Err(err).Str("backup", entry.Name()).Msg("Skipping backup set with unreadable backup info")
			}
			continue
		}

		sets = append(sets, BackupSet{
			Name: entry.Name(),
			Path: setPath,
			Info: *info,
		})
	}

	sort.SliceStable(sets, func(i, j int) bool {
		return sets[i].Info.Timestamp.After(sets[j].Info.Timestamp)
	})

	return sets, nil
}

// GetBackupStats summarizes the listed backup sets.
func (s *Service) GetBackupStats(ctx context.Context) (*Stats, error) {
	sets, err := s.ListBackups(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalBackups: len(sets)}
	for _, set := range sets {
		size, err := dirSize(set.Path)
		if err != nil {
			logging.Warn().Err(err).Str("backup", set.Name).Msg("Failed to measure backup set size")
		}
		stats.OnDiskSize += size
		stats.OriginalSize += set.Info.TotalSize
	}

	if len(sets) > 0 {
		newest := sets[0].Info.Timestamp
		oldest := sets[len(sets)-1].Info.Timestamp
		stats.NewestBackup = &newest
		stats.OldestBackup = &oldest
	}

	return stats, nil
}

// dirSize sums the sizes of all regular files below root.
func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
