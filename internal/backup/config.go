// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package backup

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all backup-related configuration
type Config struct {
	// Directory holding backup sets
	BackupDir string

	// Live upload directory. Restores write to <UploadDir>/<bucket>/<filename>
	// and relative record paths are resolved against it.
	UploadDir string

	// Backup sets older than this many days are removed after each run
	RetentionDays int

	// Compression settings
	Compression CompressionConfig

	// Write a dump of the record store as database.bak inside each set
	IncludeDatabase bool

	// Schedule configuration
	Schedule ScheduleConfig
}

// CompressionConfig defines compression settings for archived files
type CompressionConfig struct {
	// Enable compression
	Enabled bool

	// Compression algorithm (gzip, zstd)
	Algorithm string

	// Compression level (1-9, where 9 is maximum compression)
	Level int
}

// ScheduleConfig controls the recurring backup scheduler
type ScheduleConfig struct {
	Enabled bool

	// Hours between runs. The first run happens at start.
	IntervalHours int
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		BackupDir:     "/data/backups",
		UploadDir:     "/data/uploads",
		RetentionDays: 30,
		Compression: CompressionConfig{
			Enabled:   true,
			Algorithm: AlgorithmGzip,
			Level:     6,
		},
		Schedule: ScheduleConfig{
			Enabled:       true,
			IntervalHours: DefaultIntervalHours,
		},
	}
}

// Validate checks that the configuration is valid
//
//nolint:gocyclo // Validation function with many sequential checks
func (c *Config) Validate() error {
	if c.BackupDir == "" {
		return fmt.Errorf("BACKUP_DIR is required")
	}
	if !filepath.IsAbs(c.BackupDir) {
		return fmt.Errorf("BACKUP_DIR must be an absolute path, got: %s", c.BackupDir)
	}

	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	if !filepath.IsAbs(c.UploadDir) {
		return fmt.Errorf("UPLOAD_DIR must be an absolute path, got: %s", c.UploadDir)
	}
	if filepath.Clean(c.BackupDir) == filepath.Clean(c.UploadDir) {
		return fmt.Errorf("BACKUP_DIR and UPLOAD_DIR must differ")
	}

	if c.RetentionDays < 1 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must be at least 1, got: %d", c.RetentionDays)
	}

	if c.Compression.Enabled {
		if c.Compression.Level < 1 || c.Compression.Level > 9 {
			return fmt.Errorf("BACKUP_COMPRESSION_LEVEL must be between 1 and 9, got: %d", c.Compression.Level)
		}
		if _, err := codecFor(c.Compression.Algorithm); err != nil {
			return fmt.Errorf("BACKUP_COMPRESSION_ALGORITHM must be one of: gzip, zstd")
		}
	}

	if c.Schedule.Enabled && c.Schedule.IntervalHours < 1 {
		return fmt.Errorf("BACKUP_INTERVAL_HOURS must be at least 1, got: %d", c.Schedule.IntervalHours)
	}

	return nil
}

// EnsureBackupDir creates the backup directory if it doesn't exist
func (c *Config) EnsureBackupDir() error {
	if err := os.MkdirAll(c.BackupDir, 0o750); err != nil {
		return fmt.Errorf("failed to create backup directory %s: %w", c.BackupDir, err)
	}
	return nil
}
