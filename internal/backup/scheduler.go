// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
scheduler.go - Backup Scheduling

The Scheduler runs a backup immediately when started and then once per
interval until stopped.

State Machine:

	Stopped --Start(h)--> Running --Stop()--> Stopped

Start while Running is a no-op. Stop while Stopped is a no-op. Stop only
prevents future ticks: a run already in progress finishes on its own, and
Wait blocks until it has.

Failure Isolation:
A failed or panicking run is logged and the next tick still fires.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/govportal/filevault/internal/logging"
)

// DefaultIntervalHours is used when Start receives a non-positive interval.
const DefaultIntervalHours = 24

// Runner creates one backup set.
type Runner interface {
	CreateBackup(ctx context.Context) *Result
}

// Ticker delivers ticks until stopped. It exists so tests can drive the
// scheduler without waiting for wall-clock hours.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (tt timeTicker) Chan() <-chan time.Time { return tt.t.C }
func (tt timeTicker) Stop()                  { tt.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Scheduler triggers backups at a fixed interval.
type Scheduler struct {
	runner    Runner
	newTicker func(time.Duration) Ticker

	mu       sync.Mutex
	stop     chan struct{}
	interval time.Duration
	wg       sync.WaitGroup
}

// NewScheduler returns a stopped scheduler for runner.
func NewScheduler(runner Runner) *Scheduler {
	return &Scheduler{
		runner:    runner,
		newTicker: newTimeTicker,
	}
}

// Start runs one backup right away and then one every intervalHours hours.
func (s *Scheduler) Start(intervalHours int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		logging.Warn().Dur("interval", s.interval).Msg("Backup scheduler already running")
		return
	}
	if intervalHours <= 0 {
		intervalHours = DefaultIntervalHours
	}

	s.interval = time.Duration(intervalHours) * time.Hour
	s.stop = make(chan struct{})
	ticker := s.newTicker(s.interval)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.runOnce("startup")
	}()
	go s.loop(ticker, s.stop)

	logging.Info().Dur("interval", s.interval).Msg("Backup scheduler started")
}

// Stop cancels future ticks. It does not wait for a run in progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
	logging.Info().Msg("Backup scheduler stopped")
}

// IsRunning reports whether the scheduler has been started and not stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Wait blocks until the loop has exited and every triggered run has returned.
// Call it after Stop.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ticker Ticker, stop <-chan struct{}) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			// A tick racing Stop must not start a run.
			select {
			case <-stop:
				return
			default:
			}
			s.runOnce("scheduled")
		}
	}
}

// runOnce performs one backup run. Failures and panics are logged.
func (s *Scheduler) runOnce(trigger string) {
	ctx := logging.ContextWithNewCorrelationID(context.Background())
	log := logging.Ctx(ctx).With().Str("trigger", trigger).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Msg("Scheduled backup panicked")
		}
	}()

	result := s.runner.CreateBackup(ctx)
	switch {
	case result == nil:
		log.Error().Msg("Scheduled backup returned no result")
	case !result.Success:
		log.Error().Str("error", result.Error).Msg("Scheduled backup failed")
	default:
		log.Info().Str("backup_path", result.BackupPath).Int("files", result.FilesCount).Msg("Scheduled backup completed")
	}
}
