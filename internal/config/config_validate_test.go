// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"relative backup dir", func(c *Config) { c.Backup.Dir = "backups" }, "BACKUP_DIR"},
		{"backup dir equals upload dir", func(c *Config) { c.Backup.Dir = c.Uploads.Dir }, "must differ"},
		{"retention zero", func(c *Config) { c.Backup.RetentionDays = 0 }, "BACKUP_RETENTION_DAYS"},
		{"unknown algorithm", func(c *Config) { c.Backup.CompressionAlgorithm = "lz4" }, "BACKUP_COMPRESSION_ALGORITHM"},
		{"unknown algorithm ignored when disabled", func(c *Config) {
			c.Backup.CompressionEnabled = false
			c.Backup.CompressionAlgorithm = "lz4"
		}, ""},
		{"bad upload size", func(c *Config) { c.Uploads.MaxSize = "lots" }, "UPLOAD_MAX_SIZE"},
		{"zero upload size", func(c *Config) { c.Uploads.MaxSize = "0" }, "UPLOAD_MAX_SIZE"},
		{"upload size too large", func(c *Config) { c.Uploads.MaxSize = "6GiB" }, "UPLOAD_MAX_SIZE"},
		{"relative store path", func(c *Config) { c.Store.Path = "records" }, "STORE_PATH"},
		{"in-memory store ignores path", func(c *Config) {
			c.Store.InMemory = true
			c.Store.Path = ""
		}, ""},
		{"zero scan timeout", func(c *Config) { c.Antivirus.Timeout = 0 }, "SCAN_TIMEOUT"},
		{"negative rate", func(c *Config) { c.Antivirus.ScansPerSecond = -1 }, "SCAN_RATE_LIMIT"},
		{"zero concurrency", func(c *Config) { c.Verify.MaxConcurrent = 0 }, "VERIFY_MAX_CONCURRENT"},
		{"webp quality", func(c *Config) { c.Images.WebPQuality = 101 }, "WEBP_QUALITY"},
		{"images disabled skips checks", func(c *Config) {
			c.Images.Enabled = false
			c.Images.WebPQuality = 0
		}, ""},
		{"webhook scheme", func(c *Config) { c.Notify.WebhookURL = "ftp://hooks.example" }, "NOTIFY_WEBHOOK_URL"},
		{"webhook ok", func(c *Config) { c.Notify.WebhookURL = "https://hooks.example/backup" }, ""},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT"},
		{"rate limit window", func(c *Config) { c.Security.RateLimitWindow = time.Millisecond }, "RATE_LIMIT_WINDOW"},
		{"rate limit disabled", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %s", err, tt.wantErr)
			}
		})
	}
}

func TestComponentConfigs(t *testing.T) {
	cfg := defaultConfig()
	cfg.Backup.CompressionAlgorithm = "zstd"
	cfg.Antivirus.ScansPerSecond = 3
	cfg.Images.ThumbnailSize = 128
	cfg.Logging.Format = "console"

	b := cfg.BackupServiceConfig()
	if b.UploadDir != cfg.Uploads.Dir || b.Compression.Algorithm != "zstd" || b.Schedule.IntervalHours != 24 {
		t.Errorf("BackupServiceConfig() = %+v", b)
	}
	if av := cfg.ClamAVConfig(); av.ScansPerSecond != 3 || av.Timeout != 60*time.Second {
		t.Errorf("ClamAVConfig() = %+v", av)
	}
	if img := cfg.OptimizerConfig(); img.ThumbnailSize != 128 || !img.Enabled {
		t.Errorf("OptimizerConfig() = %+v", img)
	}
	if lc := cfg.LogConfig(); lc.Format != "console" || lc.Output == nil {
		t.Errorf("LogConfig() = %+v", lc)
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
}
