// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/govportal/filevault/internal/antivirus"
	"github.com/govportal/filevault/internal/backup"
	"github.com/govportal/filevault/internal/imageopt"
	"github.com/govportal/filevault/internal/logging"
)

// Config holds all application configuration
type Config struct {
	Backup    BackupConfig    `koanf:"backup"`
	Uploads   UploadsConfig   `koanf:"uploads"`
	Store     StoreConfig     `koanf:"store"`
	Antivirus AntivirusConfig `koanf:"antivirus"`
	Verify    VerifyConfig    `koanf:"verify"`
	Images    ImagesConfig    `koanf:"images"`
	Notify    NotifyConfig    `koanf:"notify"`
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// BackupConfig holds backup engine settings.
//
// Environment Variables:
//   - BACKUP_DIR: directory holding backup sets (default: /data/backups)
//   - BACKUP_RETENTION_DAYS: sets older than this are removed (default: 30)
//   - BACKUP_COMPRESSION_ENABLED, BACKUP_COMPRESSION_ALGORITHM (gzip, zstd), BACKUP_COMPRESSION_LEVEL (1-9)
//   - BACKUP_INCLUDE_DATABASE: add a record store dump to each set (default: false)
//   - BACKUP_SCHEDULE_ENABLED, BACKUP_INTERVAL_HOURS (default: true, 24)
type BackupConfig struct {
	Dir                  string `koanf:"dir"`
	RetentionDays        int    `koanf:"retention_days"`
	CompressionEnabled   bool   `koanf:"compression_enabled"`
	CompressionAlgorithm string `koanf:"compression_algorithm"`
	CompressionLevel     int    `koanf:"compression_level"`
	IncludeDatabase      bool   `koanf:"include_database"`
	ScheduleEnabled      bool   `koanf:"schedule_enabled"`
	IntervalHours        int    `koanf:"interval_hours"`
}

// UploadsConfig holds upload intake settings
type UploadsConfig struct {
	Dir string `koanf:"dir"`

	// MaxSize accepts human-readable sizes such as "50MiB" or "10 MB".
	MaxSize string `koanf:"max_size"`
}

// MaxSizeBytes parses MaxSize.
func (u UploadsConfig) MaxSizeBytes() (int64, error) {
	n, err := humanize.ParseBytes(u.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("UPLOAD_MAX_SIZE %q: %w", u.MaxSize, err)
	}
	return int64(n), nil //nolint:gosec // bounded by validation
}

// StoreConfig selects the file record store
type StoreConfig struct {
	// Path of the Badger directory
	Path string `koanf:"path"`

	// InMemory keeps records in process memory only (development, tests)
	InMemory bool `koanf:"in_memory"`
}

// AntivirusConfig holds ClamAV settings.
// UpdateInterval of zero disables scheduled signature updates.
type AntivirusConfig struct {
	ClamscanPath   string        `koanf:"clamscan_path"`
	FreshclamPath  string        `koanf:"freshclam_path"`
	Timeout        time.Duration `koanf:"timeout"`
	ScansPerSecond float64       `koanf:"scans_per_second"`
	UpdateInterval time.Duration `koanf:"update_interval"`
}

// VerifyConfig holds verification pipeline settings
type VerifyConfig struct {
	MaxConcurrent int64         `koanf:"max_concurrent"`
	DrainTimeout  time.Duration `koanf:"drain_timeout"`
}

// ImagesConfig holds image derivative settings
type ImagesConfig struct {
	Enabled       bool   `koanf:"enabled"`
	CwebpPath     string `koanf:"cwebp_path"`
	AvifencPath   string `koanf:"avifenc_path"`
	WebPQuality   int    `koanf:"webp_quality"`
	AVIFQuality   int    `koanf:"avif_quality"`
	ThumbnailSize int    `koanf:"thumbnail_size"`
}

// NotifyConfig holds backup notification settings.
// Notifications are always logged; WebhookURL adds an HTTP sink.
type NotifyConfig struct {
	WebhookURL string `koanf:"webhook_url"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SecurityConfig holds CORS and rate limiting settings
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// BackupServiceConfig maps the backup section onto backup.Config.
func (c *Config) BackupServiceConfig() *backup.Config {
	return &backup.Config{
		BackupDir:     c.Backup.Dir,
		UploadDir:     c.Uploads.Dir,
		RetentionDays: c.Backup.RetentionDays,
		Compression: backup.CompressionConfig{
			Enabled:   c.Backup.CompressionEnabled,
			Algorithm: c.Backup.CompressionAlgorithm,
			Level:     c.Backup.CompressionLevel,
		},
		IncludeDatabase: c.Backup.IncludeDatabase,
		Schedule: backup.ScheduleConfig{
			Enabled:       c.Backup.ScheduleEnabled,
			IntervalHours: c.Backup.IntervalHours,
		},
	}
}

// ClamAVConfig maps the antivirus section onto antivirus.Config.
func (c *Config) ClamAVConfig() antivirus.Config {
	return antivirus.Config{
		ClamscanPath:   c.Antivirus.ClamscanPath,
		FreshclamPath:  c.Antivirus.FreshclamPath,
		Timeout:        c.Antivirus.Timeout,
		ScansPerSecond: c.Antivirus.ScansPerSecond,
	}
}

// OptimizerConfig maps the images section onto imageopt.Config.
func (c *Config) OptimizerConfig() imageopt.Config {
	return imageopt.Config{
		Enabled:       c.Images.Enabled,
		CwebpPath:     c.Images.CwebpPath,
		AvifencPath:   c.Images.AvifencPath,
		WebPQuality:   c.Images.WebPQuality,
		AVIFQuality:   c.Images.AVIFQuality,
		ThumbnailSize: c.Images.ThumbnailSize,
	}
}

// LogConfig maps the logging section onto logging.Config.
func (c *Config) LogConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	cfg.Caller = c.Logging.Caller
	return cfg
}
