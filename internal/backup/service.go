// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
service.go - Backup Service

The Service owns the backup directory. It builds backup sets, restores them,
sweeps expired sets and reports listings and statistics.

Collaborators:
  - filestore.Store: source of FileRecords, target of restore upserts
  - notify.Notifier: operator notifications for backup and restore outcomes
  - Verifier (optional): receives ids of restored records that are unscanned

Thread Safety:
Only one backup run executes at a time per process. A second CreateBackup
call returns immediately with ErrBackupInProgress in the result. Restore,
listing and stats do not take the run lock.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/govportal/filevault/internal/filestore"
	"github.com/govportal/filevault/internal/logging"
	"github.com/govportal/filevault/internal/notify"
)

// Verifier queues a record for upload verification.
type Verifier interface {
	Submit(id string)
}

// Service performs backup and restore operations
type Service struct {
	cfg      *Config
	codec    *codec
	store    filestore.Store
	notifier notify.Notifier
	verifier Verifier

	running atomic.Bool
	now     func() time.Time
}

// NewService validates cfg, creates the backup directory and returns a Service.
func NewService(cfg *Config, store filestore.Store, notifier notify.Notifier) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backup configuration is required")
	}
	if store == nil {
		return nil, fmt.Errorf("file record store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backup configuration validation failed: %w", err)
	}
	if err := cfg.EnsureBackupDir(); err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}

	s := &Service{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
	if cfg.Compression.Enabled {
		c, err := codecFor(cfg.Compression.Algorithm)
		if err != nil {
			return nil, err
		}
		s.codec = c
	}
	return s, nil
}

// SetVerifier registers the pipeline that scans restored records.
func (s *Service) SetVerifier(v Verifier) {
	s.verifier = v
}

// Config returns the service configuration.
func (s *Service) Config() *Config {
	return s.cfg
}

// IsRunning reports whether a backup run is in progress.
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// resolveSourcePath returns the absolute location of a record's bytes.
func (s *Service) resolveSourcePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.cfg.UploadDir, path)
}

// notify delivers a notification and logs delivery failures.
func (s *Service) notify(ctx context.Context, kind notify.Kind, message string) {
	if err := s.notifier.Notify(ctx, kind, message); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("kind", string(kind)).Msg("Failed to deliver notification")
	}
}
