// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
pipeline.go - Upload Verification Pipeline

Every new upload is verified once, in the background:

	Unscanned --scan--> Infected   file and derivatives deleted, safe=false
	                \-> Safe       derivatives generated for images, safe=true
	                \-> ScanFailed safe=false

All three outcomes are terminal and are written with a single store update.
A derivative failure is logged and never changes the verdict.

Error Boundary:
Each task runs in its own goroutine with a recover. Anything that escapes
the normal flow (store errors, panics) is recorded as "ERROR: <reason>" so a
record never stays unscanned because of a bug in the pipeline.

Concurrency:
Submit never blocks. At most MaxConcurrent tasks scan at once; the rest
wait on a weighted semaphore. A record already queued or running is not
queued again. Shutdown abandons queued tasks and lets running ones finish.
A scan interrupted by its context writes no verdict, so the record stays
unscanned and ResumePending picks it up on the next start.
*/

//nolint:staticcheck // File documentation, not package doc
package verify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/govportal/filevault/internal/antivirus"
	"github.com/govportal/filevault/internal/filestore"
	"github.com/govportal/filevault/internal/imageopt"
	"github.com/govportal/filevault/internal/logging"
	"github.com/govportal/filevault/internal/metrics"
	"github.com/govportal/filevault/internal/models"
)

// DefaultMaxConcurrent is used when Config.MaxConcurrent is not positive.
const DefaultMaxConcurrent = 4

// RecordStore is the part of filestore.Store the pipeline needs.
type RecordStore interface {
	FindAll(ctx context.Context) ([]*models.FileRecord, error)
	FindByID(ctx context.Context, id string) (*models.FileRecord, error)
	Update(ctx context.Context, id string, upd models.FileUpdate) (*models.FileRecord, error)
}

// Optimizer generates and removes image derivatives.
type Optimizer interface {
	Enabled() bool
	Optimize(ctx context.Context, src string) (*imageopt.Set, error)
	Cleanup(src string) error
}

// Config holds pipeline settings
type Config struct {
	// Maximum number of verifications running at once
	MaxConcurrent int64

	// Relative record paths are resolved against this directory
	UploadDir string
}

// Pipeline verifies uploaded files in the background.
type Pipeline struct {
	cfg       Config
	store     RecordStore
	engine    antivirus.Engine
	optimizer Optimizer

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates a Pipeline. optimizer may be nil.
func New(cfg Config, store RecordStore, engine antivirus.Engine, optimizer Optimizer) *Pipeline {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		cfg:       cfg,
		store:     store,
		engine:    engine,
		optimizer: optimizer,
		sem:       semaphore.NewWeighted(cfg.MaxConcurrent),
		ctx:       ctx,
		cancel:    cancel,
		inflight:  make(map[string]struct{}),
	}
}

// Submit queues a record for verification and returns immediately.
func (p *Pipeline) Submit(id string) {
	p.mu.Lock()
	if _, queued := p.inflight[id]; queued {
		p.mu.Unlock()
		logging.Debug().Str("file_id", id).Msg("Verification already queued")
		return
	}
	p.inflight[id] = struct{}{}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer p.release(id)

		ctx := logging.ContextWithNewCorrelationID(p.ctx)
		if err := p.sem.Acquire(ctx, 1); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("file_id", id).Msg("Verification abandoned before start")
			return
		}
		defer p.sem.Release(1)

		// Shutdown only abandons queued work; a started scan runs to its verdict.
		p.Process(context.WithoutCancel(ctx), id)
	}()
}

func (p *Pipeline) release(id string) {
	p.mu.Lock()
	delete(p.inflight, id)
	p.mu.Unlock()
}

// Wait blocks until every submitted verification has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Shutdown abandons verifications still waiting for a slot and waits for
// running ones until ctx expires. Abandoned records stay unscanned and are
// picked up by ResumePending on the next start.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("verification pipeline shutdown: %w", ctx.Err())
	}
}

// ResumePending submits every record that is still unscanned and returns how
// many were submitted.
func (p *Pipeline) ResumePending(ctx context.Context) (int, error) {
	records, err := p.store.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list file records: %w", err)
	}

	n := 0
	for _, rec := range records {
		if rec.Scanned {
			continue
		}
		p.Submit(rec.ID)
		n++
	}
	if n > 0 {
		logging.Info().Int("count", n).Msg("Resumed pending verifications")
	}
	return n, nil
}

// Process verifies one record synchronously. It never panics and never
// leaves a loaded, unscanned record without a verdict unless the store
// itself rejects the update.
func (p *Pipeline) Process(ctx context.Context, id string) {
	metrics.TrackVerification(true)
	defer metrics.TrackVerification(false)

	start := time.Now()
	log := logging.Ctx(ctx).With().Str("file_id", id).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Msg("Verification panicked")
			p.apply(ctx, id, models.Verdict(false, models.ErrorResult(fmt.Sprint(r))), models.ScanStateError, start)
		}
	}()

	if err := p.verify(ctx, id, start); err != nil {
		log.Error().Err(err).Msg("Verification failed")
		p.apply(ctx, id, models.Verdict(false, models.ErrorResult(err.Error())), models.ScanStateError, start)
	}
}

// verify runs the scan and records the verdict. A returned error means no
// verdict was written.
func (p *Pipeline) verify(ctx context.Context, id string, start time.Time) error {
	rec, err := p.store.FindByID(ctx, id)
	if errors.Is(err, filestore.ErrNotFound) {
		logging.Ctx(ctx).Debug().Str("file_id", id).Msg("Record deleted before verification")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}
	if rec.Scanned {
		return nil
	}

	path := p.resolvePath(rec.Path)
	result := p.engine.Scan(ctx, path)
	if ctx.Err() != nil {
		// Interrupted scans are not verdicts. The record stays unscanned for ResumePending.
		logging.Ctx(ctx).Warn().Err(ctx.Err()).Str("file_id", id).Msg("Verification interrupted, record left unscanned")
		return nil
	}
	if result == nil {
		return errors.New("antivirus engine returned no result")
	}

	switch {
	case result.Infected:
		p.quarantine(ctx, path)
		return p.record(ctx, id, models.Verdict(false, models.InfectedResult(result.VirusName())), models.ScanStateInfected, start)

	case result.Safe:
		if p.optimizer != nil && p.optimizer.Enabled() && imageopt.IsOptimizable(rec.MimeType) {
			p.generateDerivatives(ctx, path)
		}
		return p.record(ctx, id, models.Verdict(true, models.CleanResult(result.ErrorMessage())), models.ScanStateSafe, start)

	default:
		reason := result.ErrorMessage()
		if reason == "" {
			reason = "scan did not complete"
		}
		return p.record(ctx, id, models.Verdict(false, models.ScanFailedResult(reason)), models.ScanStateFailed, start)
	}
}

// quarantine deletes an infected file and any derivatives of it.
func (p *Pipeline) quarantine(ctx context.Context, path string) {
	log := logging.Ctx(ctx).With().Str("path", path).Logger()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Error().Err(err).Msg("Failed to delete infected file")
	} else {
		log.Warn().Msg("Infected file deleted")
	}
	if p.optimizer != nil {
		if err := p.optimizer.Cleanup(path); err != nil {
			log.Warn().Err(err).Msg("Failed to remove derivatives of infected file")
		}
	}
}

// generateDerivatives runs the optimizer. Failures and panics are logged and
// swallowed so the clean verdict stands.
func (p *Pipeline) generateDerivatives(ctx context.Context, path string) {
	log := logging.Ctx(ctx).With().Str("path", path).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Msg("Image optimization panicked")
		}
	}()

	if _, err := p.optimizer.Optimize(ctx, path); err != nil {
		log.Warn().Err(err).Msg("Image optimization failed, keeping clean verdict")
	}
}

// record writes a terminal verdict.
func (p *Pipeline) record(ctx context.Context, id string, upd models.FileUpdate, state models.ScanState, start time.Time) error {
	if _, err := p.store.Update(ctx, id, upd); err != nil {
		return fmt.Errorf("record %s verdict: %w", state, err)
	}
	metrics.RecordScan(string(state), time.Since(start))
	logging.Ctx(ctx).Info().Str("file_id", id).Str("state", string(state)).Str("scan_result", *upd.ScanResult).Msg("Verification complete")
	return nil
}

// apply is the last-resort verdict write used by the error boundary.
func (p *Pipeline) apply(ctx context.Context, id string, upd models.FileUpdate, state models.ScanState, start time.Time) {
	if err := p.record(ctx, id, upd, state, start); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("file_id", id).Msg("Failed to record verification error, record left unscanned")
	}
}

func (p *Pipeline) resolvePath(path string) string {
	if filepath.IsAbs(path) || p.cfg.UploadDir == "" {
		return path
	}
	return filepath.Join(p.cfg.UploadDir, path)
}
