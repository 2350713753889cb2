// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package verify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/govportal/filevault/internal/antivirus"
	"github.com/govportal/filevault/internal/filestore"
	"github.com/govportal/filevault/internal/imageopt"
	"github.com/govportal/filevault/internal/models"
)

// fakeEngine returns scripted verdicts and tracks concurrency.
type fakeEngine struct {
	mu        sync.Mutex
	scans     int
	active    int
	maxActive int
	gate      chan struct{}
	verdict   func(path string) *models.ScanResult
}

func (e *fakeEngine) Scan(_ context.Context, path string) *models.ScanResult {
	e.mu.Lock()
	e.scans++
	e.active++
	if e.active > e.maxActive {
		e.maxActive = e.active
	}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
	}()

	if e.gate != nil {
		<-e.gate
	}
	if e.verdict == nil {
		return &models.ScanResult{Safe: true}
	}
	return e.verdict(path)
}

func (e *fakeEngine) stats() (scans, maxActive int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scans, e.maxActive
}

// fakeOptimizer records calls and fails or panics on demand.
type fakeOptimizer struct {
	mu        sync.Mutex
	disabled  bool
	err       error
	panicMsg  string
	optimized []string
	cleaned   []string
}

func (o *fakeOptimizer) Enabled() bool { return !o.disabled }

func (o *fakeOptimizer) Optimize(_ context.Context, src string) (*imageopt.Set, error) {
	o.mu.Lock()
	o.optimized = append(o.optimized, src)
	o.mu.Unlock()
	if o.panicMsg != "" {
		panic(o.panicMsg)
	}
	return &imageopt.Set{}, o.err
}

func (o *fakeOptimizer) Cleanup(src string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cleaned = append(o.cleaned, src)
	return nil
}

// countingStore counts Update calls per id.
type countingStore struct {
	*filestore.MemoryStore
	mu      sync.Mutex
	updates map[string]int
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: filestore.NewMemoryStore(), updates: make(map[string]int)}
}

func (s *countingStore) Update(ctx context.Context, id string, upd models.FileUpdate) (*models.FileRecord, error) {
	s.mu.Lock()
	s.updates[id]++
	s.mu.Unlock()
	return s.MemoryStore.Update(ctx, id, upd)
}

func (s *countingStore) updateCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates[id]
}

func addUpload(t *testing.T, store *countingStore, dir, name, mime string) *models.FileRecord {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("payload"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	rec, err := store.Create(context.Background(), &models.FileRecord{
		Filename: name,
		MimeType: mime,
		Size:     7,
		Path:     path,
		Bucket:   "uploads",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return rec
}

func mustFind(t *testing.T, store *countingStore, id string) *models.FileRecord {
	t.Helper()
	rec, err := store.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	return rec
}

func scanResult(rec *models.FileRecord) string {
	if rec.ScanResult == nil {
		return ""
	}
	return *rec.ScanResult
}

func strPtr(s string) *string { return &s }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestProcess_TerminalStates(t *testing.T) {
	tests := []struct {
		name       string
		verdict    func(string) *models.ScanResult
		wantSafe   bool
		wantResult string
		wantState  models.ScanState
		wantFile   bool
	}{
		{
			name:       "clean",
			verdict:    func(string) *models.ScanResult { return &models.ScanResult{Safe: true} },
			wantSafe:   true,
			wantResult: "CLEAN",
			wantState:  models.ScanStateSafe,
			wantFile:   true,
		},
		{
			name: "infected",
			verdict: func(string) *models.ScanResult {
				return &models.ScanResult{Infected: true, Virus: strPtr("Eicar-Test-Signature")}
			},
			wantResult: "INFECTED: Eicar-Test-Signature",
			wantState:  models.ScanStateInfected,
		},
		{
			name: "engine absent",
			verdict: func(string) *models.ScanResult {
				return &models.ScanResult{Safe: true, Error: strPtr(antivirus.EngineUnavailableWarning)}
			},
			wantSafe:   true,
			wantResult: "CLEAN: " + antivirus.EngineUnavailableWarning,
			wantState:  models.ScanStateSafe,
			wantFile:   true,
		},
		{
			name: "scan failed",
			verdict: func(string) *models.ScanResult {
				return &models.ScanResult{Error: strPtr("scan timed out after 1m0s")}
			},
			wantResult: "SCAN_FAILED: scan timed out after 1m0s",
			wantState:  models.ScanStateFailed,
			wantFile:   true,
		},
		{
			name:       "engine panics",
			verdict:    func(string) *models.ScanResult { panic("engine exploded") },
			wantResult: "ERROR: engine exploded",
			wantState:  models.ScanStateError,
			wantFile:   true,
		},
		{
			name:       "engine returns nothing",
			verdict:    func(string) *models.ScanResult { return nil },
			wantResult: "ERROR: antivirus engine returned no result",
			wantState:  models.ScanStateError,
			wantFile:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCountingStore()
			rec := addUpload(t, store, t.TempDir(), "doc.pdf", "application/pdf")
			p := New(Config{}, store, &fakeEngine{verdict: tt.verdict}, nil)

			p.Process(context.Background(), rec.ID)

			got := mustFind(t, store, rec.ID)
			if !got.Scanned {
				t.Error("Scanned = false after verification")
			}
			if got.Safe != tt.wantSafe {
				t.Errorf("Safe = %v, want %v", got.Safe, tt.wantSafe)
			}
			if scanResult(got) != tt.wantResult {
				t.Errorf("ScanResult = %q, want %q", scanResult(got), tt.wantResult)
			}
			if got.State() != tt.wantState {
				t.Errorf("State() = %s, want %s", got.State(), tt.wantState)
			}
			if n := store.updateCount(rec.ID); n != 1 {
				t.Errorf("record updated %d times, want 1", n)
			}

			_, err := os.Stat(rec.Path)
			if exists := err == nil; exists != tt.wantFile {
				t.Errorf("file exists = %v, want %v", exists, tt.wantFile)
			}
		})
	}
}

func TestProcess_DerivativeFailureKeepsCleanVerdict(t *testing.T) {
	tests := []struct {
		name string
		opt  *fakeOptimizer
	}{
		{"optimizer error", &fakeOptimizer{err: errors.New("cwebp: exit status 1")}},
		{"optimizer panic", &fakeOptimizer{panicMsg: "decoder bug"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCountingStore()
			rec := addUpload(t, store, t.TempDir(), "photo.png", "image/png")
			p := New(Config{}, store, &fakeEngine{}, tt.opt)

			p.Process(context.Background(), rec.ID)

			got := mustFind(t, store, rec.ID)
			if !got.Scanned || !got.Safe {
				t.Errorf("scanned=%v safe=%v, want both true", got.Scanned, got.Safe)
			}
			if scanResult(got) != models.ScanResultClean {
				t.Errorf("ScanResult = %q, want CLEAN", scanResult(got))
			}
			if len(tt.opt.optimized) != 1 {
				t.Errorf("optimizer called %d times, want 1", len(tt.opt.optimized))
			}
		})
	}
}

func TestProcess_OptimizerSelection(t *testing.T) {
	tests := []struct {
		name     string
		mime     string
		disabled bool
		verdict  *models.ScanResult
		want     int
	}{
		{"clean image", "image/jpeg", false, &models.ScanResult{Safe: true}, 1},
		{"clean document", "application/pdf", false, &models.ScanResult{Safe: true}, 0},
		{"optimizer disabled", "image/png", true, &models.ScanResult{Safe: true}, 0},
		{"infected image", "image/png", false, &models.ScanResult{Infected: true}, 0},
		{"failed scan image", "image/png", false, &models.ScanResult{Error: strPtr("x")}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCountingStore()
			rec := addUpload(t, store, t.TempDir(), "file.bin", tt.mime)
			opt := &fakeOptimizer{disabled: tt.disabled}
			verdict := tt.verdict
			p := New(Config{}, store, &fakeEngine{verdict: func(string) *models.ScanResult { return verdict }}, opt)

			p.Process(context.Background(), rec.ID)

			if len(opt.optimized) != tt.want {
				t.Errorf("optimizer called %d times, want %d", len(opt.optimized), tt.want)
			}
		})
	}
}

func TestProcess_InfectedRemovesDerivatives(t *testing.T) {
	store := newCountingStore()
	rec := addUpload(t, store, t.TempDir(), "photo.png", "image/png")
	opt := &fakeOptimizer{}
	engine := &fakeEngine{verdict: func(string) *models.ScanResult { return &models.ScanResult{Infected: true} }}
	p := New(Config{}, store, engine, opt)

	p.Process(context.Background(), rec.ID)

	if len(opt.cleaned) != 1 || opt.cleaned[0] != rec.Path {
		t.Errorf("Cleanup calls = %v, want [%s]", opt.cleaned, rec.Path)
	}
	if got := scanResult(mustFind(t, store, rec.ID)); got != "INFECTED: unknown" {
		t.Errorf("ScanResult = %q", got)
	}
}

func TestProcess_AlreadyScannedIsSkipped(t *testing.T) {
	store := newCountingStore()
	rec := addUpload(t, store, t.TempDir(), "doc.pdf", "application/pdf")
	if _, err := store.MemoryStore.Update(context.Background(), rec.ID, models.Verdict(true, models.ScanResultClean)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	engine := &fakeEngine{}
	p := New(Config{}, store, engine, nil)

	p.Process(context.Background(), rec.ID)

	if scans, _ := engine.stats(); scans != 0 {
		t.Errorf("engine scanned %d times, want 0", scans)
	}
	if n := store.updateCount(rec.ID); n != 0 {
		t.Errorf("record updated %d times, want 0", n)
	}
}

func TestProcess_DeletedRecord(t *testing.T) {
	store := newCountingStore()
	engine := &fakeEngine{}
	p := New(Config{}, store, engine, nil)

	p.Process(context.Background(), "no-such-id")

	if scans, _ := engine.stats(); scans != 0 {
		t.Errorf("engine scanned %d times, want 0", scans)
	}
}

func TestProcess_RelativePath(t *testing.T) {
	dir := t.TempDir()
	store := newCountingStore()
	rec := addUpload(t, store, dir, "doc.pdf", "application/pdf")
	rel := "doc.pdf"
	if _, err := store.MemoryStore.Update(context.Background(), rec.ID, models.FileUpdate{Path: &rel}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	var scanned string
	engine := &fakeEngine{verdict: func(path string) *models.ScanResult {
		scanned = path
		return &models.ScanResult{Infected: true}
	}}
	p := New(Config{UploadDir: dir}, store, engine, nil)

	p.Process(context.Background(), rec.ID)

	if scanned != filepath.Join(dir, "doc.pdf") {
		t.Errorf("scanned path = %s", scanned)
	}
	if _, err := os.Stat(filepath.Join(dir, "doc.pdf")); !os.IsNotExist(err) {
		t.Error("infected file not deleted")
	}
}

func TestSubmit_BoundedConcurrency(t *testing.T) {
	store := newCountingStore()
	dir := t.TempDir()
	var ids []string
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"} {
		ids = append(ids, addUpload(t, store, dir, name, "application/pdf").ID)
	}

	engine := &fakeEngine{gate: make(chan struct{})}
	p := New(Config{MaxConcurrent: 2}, store, engine, nil)

	start := time.Now()
	for _, id := range ids {
		p.Submit(id)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Submit blocked for %v", elapsed)
	}

	for range ids {
		engine.gate <- struct{}{}
	}
	p.Wait()

	scans, maxActive := engine.stats()
	if scans != len(ids) {
		t.Errorf("scans = %d, want %d", scans, len(ids))
	}
	if maxActive > 2 {
		t.Errorf("max concurrent scans = %d, want <= 2", maxActive)
	}
	for _, id := range ids {
		if rec := mustFind(t, store, id); !rec.Scanned {
			t.Errorf("record %s left unscanned", id)
		}
	}
}

func TestSubmit_DeduplicatesQueuedRecord(t *testing.T) {
	store := newCountingStore()
	rec := addUpload(t, store, t.TempDir(), "doc.pdf", "application/pdf")

	engine := &fakeEngine{gate: make(chan struct{})}
	p := New(Config{}, store, engine, nil)

	p.Submit(rec.ID)
	p.Submit(rec.ID)
	engine.gate <- struct{}{}
	p.Wait()

	if scans, _ := engine.stats(); scans != 1 {
		t.Errorf("scans = %d, want 1", scans)
	}
	if n := store.updateCount(rec.ID); n != 1 {
		t.Errorf("updates = %d, want 1", n)
	}
}

func TestResumePending(t *testing.T) {
	store := newCountingStore()
	dir := t.TempDir()
	pending := addUpload(t, store, dir, "a.pdf", "application/pdf")
	done := addUpload(t, store, dir, "b.pdf", "application/pdf")
	if _, err := store.MemoryStore.Update(context.Background(), done.ID, models.Verdict(true, models.ScanResultClean)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	p := New(Config{}, store, &fakeEngine{}, nil)
	n, err := p.ResumePending(context.Background())
	if err != nil {
		t.Fatalf("ResumePending() error = %v", err)
	}
	if n != 1 {
		t.Errorf("ResumePending() = %d, want 1", n)
	}
	p.Wait()

	if !mustFind(t, store, pending.ID).Scanned {
		t.Error("pending record not verified")
	}
}

func TestShutdown_AbandonsQueuedWork(t *testing.T) {
	store := newCountingStore()
	dir := t.TempDir()
	first := addUpload(t, store, dir, "a.pdf", "application/pdf")
	second := addUpload(t, store, dir, "b.pdf", "application/pdf")

	engine := &fakeEngine{gate: make(chan struct{})}
	p := New(Config{MaxConcurrent: 1}, store, engine, nil)

	p.Submit(first.ID)
	// The first scan holds the only slot.
	waitFor(t, "first scan to start", func() bool {
		scans, _ := engine.stats()
		return scans == 1
	})
	p.Submit(second.ID)

	shutdownDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownDone <- p.Shutdown(ctx)
	}()
	waitFor(t, "shutdown to cancel queued work", func() bool { return p.ctx.Err() != nil })

	engine.gate <- struct{}{}
	if err := <-shutdownDone; err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if !mustFind(t, store, first.ID).Scanned {
		t.Error("running verification was not allowed to finish")
	}
	if got := mustFind(t, store, second.ID); got.Scanned {
		t.Errorf("queued verification ran after shutdown: %s", scanResult(got))
	}
}

func TestShutdown_Timeout(t *testing.T) {
	store := newCountingStore()
	rec := addUpload(t, store, t.TempDir(), "a.pdf", "application/pdf")
	engine := &fakeEngine{gate: make(chan struct{})}
	p := New(Config{}, store, engine, nil)
	p.Submit(rec.ID)
	waitFor(t, "scan to start", func() bool {
		scans, _ := engine.stats()
		return scans == 1
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Shutdown(ctx)
	if err == nil || !strings.Contains(err.Error(), "shutdown") {
		t.Errorf("Shutdown() error = %v, want timeout", err)
	}

	close(engine.gate)
	p.Wait()
}

// blockingRunner is a ClamAV command runner whose scans block until released
// or until their context ends.
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (r *blockingRunner) Run(ctx context.Context, _ string, args ...string) ([]byte, int, error) {
	if len(args) > 0 && args[0] == "--version" {
		return []byte("ClamAV 1.4.1\n"), 0, nil
	}
	select {
	case r.started <- struct{}{}:
	default:
	}
	select {
	case <-r.release:
		return nil, 0, nil
	case <-ctx.Done():
		return nil, -1, ctx.Err()
	}
}

func TestShutdown_RunningClamAVScanKeepsItsVerdict(t *testing.T) {
	store := newCountingStore()
	rec := addUpload(t, store, t.TempDir(), "a.pdf", "application/pdf")

	runner := newBlockingRunner()
	engine := antivirus.New(antivirus.DefaultConfig(), runner)
	p := New(Config{MaxConcurrent: 1}, store, engine, nil)

	p.Submit(rec.ID)
	<-runner.started

	shutdownDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownDone <- p.Shutdown(ctx)
	}()
	waitFor(t, "shutdown to begin", func() bool { return p.ctx.Err() != nil })

	if got := mustFind(t, store, rec.ID); got.Scanned {
		t.Fatalf("verdict written before the scan finished: %s", scanResult(got))
	}

	close(runner.release)
	if err := <-shutdownDone; err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	got := mustFind(t, store, rec.ID)
	if !got.Scanned || !got.Safe || scanResult(got) != models.ScanResultClean {
		t.Errorf("record = scanned %v safe %v result %q, want clean verdict", got.Scanned, got.Safe, scanResult(got))
	}
}

func TestProcess_InterruptedScanLeavesRecordUnscanned(t *testing.T) {
	store := newCountingStore()
	rec := addUpload(t, store, t.TempDir(), "a.pdf", "application/pdf")

	runner := newBlockingRunner()
	engine := antivirus.New(antivirus.DefaultConfig(), runner)
	p := New(Config{}, store, engine, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Process(ctx, rec.ID)
	}()
	<-runner.started
	cancel()
	<-done

	if got := mustFind(t, store, rec.ID); got.Scanned {
		t.Fatalf("interrupted scan recorded a verdict: %s", scanResult(got))
	}
	if n := store.updateCount(rec.ID); n != 0 {
		t.Errorf("Update() called %d times, want 0", n)
	}
	if state := engine.Status(context.Background()).CircuitState; state != "closed" {
		t.Errorf("CircuitState = %s, want closed", state)
	}

	close(runner.release)
	n, err := p.ResumePending(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("ResumePending() = %d, %v, want 1, nil", n, err)
	}
	p.Wait()

	if got := mustFind(t, store, rec.ID); !got.Scanned || !got.Safe {
		t.Errorf("record after resume = scanned %v safe %v, want clean", got.Scanned, got.Safe)
	}
}
