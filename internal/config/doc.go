// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
Package config loads and validates File Vault configuration.

# Configuration Sources

Configuration is layered with koanf v2, later sources overriding earlier ones:

 1. Built-in defaults (structs provider)
 2. Optional YAML file: CONFIG_PATH, else config.yaml, config.yml,
    /etc/filevault/config.yaml, /etc/filevault/config.yml
 3. Environment variables, through an explicit name-to-path mapping

Unmapped environment variables are ignored.

# Environment Variables

Backup:
  - BACKUP_DIR (default: /data/backups)
  - BACKUP_RETENTION_DAYS (default: 30)
  - BACKUP_COMPRESSION_ENABLED (default: true)
  - BACKUP_COMPRESSION_ALGORITHM: gzip or zstd (default: gzip)
  - BACKUP_COMPRESSION_LEVEL: 1-9 (default: 6)
  - BACKUP_INCLUDE_DATABASE (default: false)
  - BACKUP_SCHEDULE_ENABLED (default: true)
  - BACKUP_INTERVAL_HOURS (default: 24)

Uploads and records:
  - UPLOAD_DIR (default: /data/uploads)
  - UPLOAD_MAX_SIZE: human-readable, e.g. 50MiB (default: 50MiB)
  - STORE_PATH: Badger directory (default: /data/records)
  - STORE_IN_MEMORY (default: false)

Antivirus and verification:
  - CLAMSCAN_PATH, FRESHCLAM_PATH
  - SCAN_TIMEOUT (default: 60s)
  - SCAN_RATE_LIMIT: scans started per second (default: 5)
  - ANTIVIRUS_UPDATE_INTERVAL: 0 disables scheduled updates (default: 0)
  - VERIFY_MAX_CONCURRENT (default: 4)
  - VERIFY_DRAIN_TIMEOUT (default: 30s)

Images:
  - IMAGE_OPTIMIZE_ENABLED (default: true)
  - CWEBP_PATH, AVIFENC_PATH
  - WEBP_QUALITY (default: 80), AVIF_QUALITY (default: 50)
  - THUMBNAIL_SIZE (default: 300)

Notifications:
  - NOTIFY_WEBHOOK_URL (default: unset, log only)

HTTP:
  - HTTP_HOST (default: 0.0.0.0), HTTP_PORT (default: 8080)
  - HTTP_TIMEOUT (default: 60s), HTTP_SHUTDOWN_TIMEOUT (default: 10s)
  - CORS_ORIGINS: comma-separated (default: *)
  - RATE_LIMIT_REQUESTS (default: 100), RATE_LIMIT_WINDOW (default: 1m)
  - DISABLE_RATE_LIMIT (default: false)

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER (default: info, json, false)

# Usage

	cfg, err := config.Load()
	if err != nil {
	    return err
	}
	logging.Init(cfg.LogConfig())
	svc, err := backup.NewService(cfg.BackupServiceConfig(), store, notifier)
*/
package config
