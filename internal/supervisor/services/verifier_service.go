// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/govportal/filevault/internal/logging"
)

// DefaultVerifierDrainTimeout bounds how long in-flight scans may run after
// shutdown is requested.
const DefaultVerifierDrainTimeout = 30 * time.Second

// Verifier is the lifecycle of verify.Pipeline.
type Verifier interface {
	ResumePending(ctx context.Context) (int, error)
	Shutdown(ctx context.Context) error
}

// VerifierService resubmits records left unscanned by a previous run and
// drains the pipeline on shutdown.
//
// The pipeline can only be shut down once, so a failed resume is logged and
// the service keeps running rather than returning an error for a restart.
type VerifierService struct {
	verifier     Verifier
	drainTimeout time.Duration
}

// NewVerifierService wraps verifier. A non-positive timeout uses
// DefaultVerifierDrainTimeout.
func NewVerifierService(verifier Verifier, drainTimeout time.Duration) *VerifierService {
	if drainTimeout <= 0 {
		drainTimeout = DefaultVerifierDrainTimeout
	}
	return &VerifierService{verifier: verifier, drainTimeout: drainTimeout}
}

// Serve implements suture.Service.
func (s *VerifierService) Serve(ctx context.Context) error {
	if _, err := s.verifier.ResumePending(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to resume pending verifications")
	}

	<-ctx.Done()

	drainCtx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()
	if err := s.verifier.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("verifier drain: %w", err)
	}
	return ctx.Err()
}

func (s *VerifierService) String() string {
	return "verifier"
}
