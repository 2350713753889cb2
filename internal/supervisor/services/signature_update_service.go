// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package services

import (
	"context"
	"time"

	"github.com/govportal/filevault/internal/logging"
)

// SignatureUpdater refreshes antivirus signatures.
type SignatureUpdater interface {
	UpdateSignatures(ctx context.Context) bool
}

// SignatureUpdateService refreshes antivirus signatures on a fixed interval.
// A failed update is logged and retried on the next tick.
type SignatureUpdateService struct {
	updater  SignatureUpdater
	interval time.Duration
}

// DefaultSignatureUpdateInterval is used when no interval is configured.
const DefaultSignatureUpdateInterval = 24 * time.Hour

// NewSignatureUpdateService wraps updater.
func NewSignatureUpdateService(updater SignatureUpdater, interval time.Duration) *SignatureUpdateService {
	if interval <= 0 {
		interval = DefaultSignatureUpdateInterval
	}
	return &SignatureUpdateService{updater: updater, interval: interval}
}

// Serve implements suture.Service.
func (s *SignatureUpdateService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.updater.UpdateSignatures(ctx) {
				logging.Warn().Dur("retry_in", s.interval).Msg("Scheduled signature update failed")
			}
		}
	}
}

func (s *SignatureUpdateService) String() string {
	return "signature-updater"
}
