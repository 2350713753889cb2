// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/govportal/filevault/internal/backup"
	"github.com/govportal/filevault/internal/imageopt"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/filevault/config.yaml",
	"/etc/filevault/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	images := imageopt.DefaultConfig()
	return &Config{
		Backup: BackupConfig{
			Dir:                  "/data/backups",
			RetentionDays:        30,
			CompressionEnabled:   true,
			CompressionAlgorithm: backup.AlgorithmGzip,
			CompressionLevel:     6,
			IncludeDatabase:      false,
			ScheduleEnabled:      true,
			IntervalHours:        backup.DefaultIntervalHours,
		},
		Uploads: UploadsConfig{
			Dir:     "/data/uploads",
			MaxSize: "50MiB",
		},
		Store: StoreConfig{
			Path:     "/data/records",
			InMemory: false,
		},
		Antivirus: AntivirusConfig{
			ClamscanPath:   "clamscan",
			FreshclamPath:  "freshclam",
			Timeout:        60 * time.Second,
			ScansPerSecond: 5,
			UpdateInterval: 0, // Signatures are normally refreshed by the freshclam daemon
		},
		Verify: VerifyConfig{
			MaxConcurrent: 4,
			DrainTimeout:  30 * time.Second,
		},
		Images: ImagesConfig{
			Enabled:       images.Enabled,
			CwebpPath:     images.CwebpPath,
			AvifencPath:   images.AvifencPath,
			WebPQuality:   images.WebPQuality,
			AVIFQuality:   images.AVIFQuality,
			ThumbnailSize: images.ThumbnailSize,
		},
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Timeout:         60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// BACKUP_DIR -> backup.dir, HTTP_PORT -> server.port
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns CONFIG_PATH when it exists, otherwise the first
// existing entry of DefaultConfigPaths, otherwise "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings; YAML lists are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	// Backup
	"backup_dir":                   "backup.dir",
	"backup_retention_days":        "backup.retention_days",
	"backup_compression_enabled":   "backup.compression_enabled",
	"backup_compression_algorithm": "backup.compression_algorithm",
	"backup_compression_level":     "backup.compression_level",
	"backup_include_database":      "backup.include_database",
	"backup_schedule_enabled":      "backup.schedule_enabled",
	"backup_interval_hours":        "backup.interval_hours",

	// Uploads and record store
	"upload_dir":      "uploads.dir",
	"upload_max_size": "uploads.max_size",
	"store_path":      "store.path",
	"store_in_memory": "store.in_memory",

	// Antivirus
	"clamscan_path":             "antivirus.clamscan_path",
	"freshclam_path":            "antivirus.freshclam_path",
	"scan_timeout":              "antivirus.timeout",
	"scan_rate_limit":           "antivirus.scans_per_second",
	"antivirus_update_interval": "antivirus.update_interval",

	// Verification pipeline
	"verify_max_concurrent": "verify.max_concurrent",
	"verify_drain_timeout":  "verify.drain_timeout",

	// Image derivatives
	"image_optimize_enabled": "images.enabled",
	"cwebp_path":             "images.cwebp_path",
	"avifenc_path":           "images.avifenc_path",
	"webp_quality":           "images.webp_quality",
	"avif_quality":           "images.avif_quality",
	"thumbnail_size":         "images.thumbnail_size",

	// Notifications
	"notify_webhook_url": "notify.webhook_url",

	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped so unrelated environment
// does not leak into the configuration.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
