// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package services

import (
	"context"

	"github.com/govportal/filevault/internal/logging"
)

// BackupScheduler is the lifecycle of backup.Scheduler.
type BackupScheduler interface {
	Start(intervalHours int)
	Stop()
	Wait()
}

// BackupSchedulerService starts the backup scheduler when served and stops
// it on cancellation. A backup already running is allowed to finish.
type BackupSchedulerService struct {
	scheduler     BackupScheduler
	intervalHours int
}

// NewBackupSchedulerService wraps scheduler.
func NewBackupSchedulerService(scheduler BackupScheduler, intervalHours int) *BackupSchedulerService {
	return &BackupSchedulerService{scheduler: scheduler, intervalHours: intervalHours}
}

// Serve implements suture.Service.
func (s *BackupSchedulerService) Serve(ctx context.Context) error {
	s.scheduler.Start(s.intervalHours)
	logging.Info().Int("interval_hours", s.intervalHours).Msg("Backup scheduler started")

	<-ctx.Done()

	s.scheduler.Stop()
	s.scheduler.Wait()
	logging.Info().Msg("Backup scheduler stopped")
	return ctx.Err()
}

func (s *BackupSchedulerService) String() string {
	return "backup-scheduler"
}
