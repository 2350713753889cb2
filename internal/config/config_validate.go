// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/govportal/filevault/internal/notify"
)

// maxUploadSize caps UPLOAD_MAX_SIZE.
const maxUploadSize = 5 << 30

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.BackupServiceConfig().Validate(); err != nil {
		return err
	}

	if err := c.validateUploads(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateAntivirus(); err != nil {
		return err
	}

	if err := c.validateImages(); err != nil {
		return err
	}

	if err := c.validateNotify(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateUploads() error {
	size, err := c.Uploads.MaxSizeBytes()
	if err != nil {
		return err
	}
	if size < 1 || size > maxUploadSize {
		return fmt.Errorf("UPLOAD_MAX_SIZE must be between 1 byte and 5GiB, got: %s", c.Uploads.MaxSize)
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.InMemory {
		return nil
	}
	if c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required unless STORE_IN_MEMORY=true")
	}
	if !filepath.IsAbs(c.Store.Path) {
		return fmt.Errorf("STORE_PATH must be an absolute path, got: %s", c.Store.Path)
	}
	return nil
}

func (c *Config) validateAntivirus() error {
	if c.Antivirus.Timeout <= 0 {
		return fmt.Errorf("SCAN_TIMEOUT must be positive, got: %s", c.Antivirus.Timeout)
	}
	if c.Antivirus.ScansPerSecond < 0 {
		return fmt.Errorf("SCAN_RATE_LIMIT must not be negative, got: %g", c.Antivirus.ScansPerSecond)
	}
	if c.Antivirus.UpdateInterval < 0 {
		return fmt.Errorf("ANTIVIRUS_UPDATE_INTERVAL must not be negative, got: %s", c.Antivirus.UpdateInterval)
	}
	if c.Verify.MaxConcurrent < 1 {
		return fmt.Errorf("VERIFY_MAX_CONCURRENT must be at least 1, got: %d", c.Verify.MaxConcurrent)
	}
	return nil
}

func (c *Config) validateImages() error {
	if !c.Images.Enabled {
		return nil
	}
	if c.Images.WebPQuality < 1 || c.Images.WebPQuality > 100 {
		return fmt.Errorf("WEBP_QUALITY must be between 1 and 100, got: %d", c.Images.WebPQuality)
	}
	if c.Images.AVIFQuality < 0 || c.Images.AVIFQuality > 100 {
		return fmt.Errorf("AVIF_QUALITY must be between 0 and 100, got: %d", c.Images.AVIFQuality)
	}
	if c.Images.ThumbnailSize < 16 {
		return fmt.Errorf("THUMBNAIL_SIZE must be at least 16, got: %d", c.Images.ThumbnailSize)
	}
	return nil
}

func (c *Config) validateNotify() error {
	if c.Notify.WebhookURL == "" {
		return nil
	}
	if err := notify.ValidateWebhookURL(c.Notify.WebhookURL); err != nil {
		return fmt.Errorf("NOTIFY_WEBHOOK_URL: %w", err)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got: %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got: %s", c.Security.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
