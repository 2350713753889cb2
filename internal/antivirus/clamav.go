// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
clamav.go - ClamAV Engine

Scans files with the clamscan command line scanner.

	clamscan --no-summary --infected <path>

	exit 0  -> clean
	exit 1  -> infected, "<path>: <virus> FOUND" on stdout
	other   -> scan error

Availability:
The engine is probed with "clamscan --version" on first use. A conclusive
answer is cached: the version on success, "unavailable" when clamscan cannot
be run or exits non-zero. A probe cut short by a cancelled or expired context
is not cached and the scan that triggered it fails. Reset clears the cache,
which UpdateSignatures does after a successful freshclam run. When clamscan
is not installed every scan returns Safe=true with an explanatory Error so
uploads are not blocked.

Cancellation:
A scan interrupted by its caller's context returns an error wrapping
ErrScanAborted. It is not a verdict and does not count against the circuit
breaker.

Resilience:
Scan invocations run through a circuit breaker. While the circuit is open
scans fail fast with a scan error instead of piling up clamscan processes.
Scan starts are paced by a token bucket limiter.
*/

//nolint:staticcheck // File documentation, not package doc
package antivirus

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/govportal/filevault/internal/logging"
	"github.com/govportal/filevault/internal/metrics"
	"github.com/govportal/filevault/internal/models"
)

// ErrScanAborted marks a scan or probe interrupted by the caller's context.
var ErrScanAborted = errors.New("scan aborted")

// EngineUnavailableWarning annotates scans skipped because clamscan is missing.
const EngineUnavailableWarning = "antivirus engine not available, file not scanned"

const (
	breakerName = "clamav"

	// DefaultTimeout bounds a single clamscan run.
	DefaultTimeout = 60 * time.Second

	// probeTimeout bounds "clamscan --version".
	probeTimeout = 10 * time.Second

	// updateTimeout bounds a freshclam run.
	updateTimeout = 5 * time.Minute
)

// Engine scans one file. Implementations never return nil.
type Engine interface {
	Scan(ctx context.Context, path string) *models.ScanResult
}

// Config holds ClamAV settings
type Config struct {
	ClamscanPath   string
	FreshclamPath  string
	Timeout        time.Duration
	ScansPerSecond float64
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		ClamscanPath:   "clamscan",
		FreshclamPath:  "freshclam",
		Timeout:        DefaultTimeout,
		ScansPerSecond: 5,
	}
}

// Status describes the engine for operators.
type Status struct {
	Available    bool   `json:"available"`
	Version      string `json:"version,omitempty"`
	CircuitState string `json:"circuitState"`
}

// ClamAV is an Engine backed by clamscan.
type ClamAV struct {
	cfg     Config
	runner  CommandRunner
	cb      *gobreaker.CircuitBreaker[interface{}]
	limiter *rate.Limiter

	mu        sync.Mutex
	probed    bool
	available bool
	version   string
}

// New creates a ClamAV engine. A nil runner uses ExecRunner.
func New(cfg Config, runner CommandRunner) *ClamAV {
	if cfg.ClamscanPath == "" {
		cfg.ClamscanPath = "clamscan"
	}
	if cfg.FreshclamPath == "" {
		cfg.FreshclamPath = "freshclam"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if runner == nil {
		runner = ExecRunner{}
	}

	limit := rate.Inf
	burst := 1
	if cfg.ScansPerSecond > 0 {
		limit = rate.Limit(cfg.ScansPerSecond)
		burst = max(1, int(cfg.ScansPerSecond))
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return &ClamAV{
		cfg:     cfg,
		runner:  runner,
		limiter: rate.NewLimiter(limit, burst),
		cb: gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
			Name:        breakerName,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrScanAborted)
			},
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] State transition")
				metrics.RecordCircuitBreakerTransition(name, from, to)
			},
		}),
	}
}

// IsAvailable probes clamscan once and caches a conclusive outcome.
func (c *ClamAV) IsAvailable(ctx context.Context) bool {
	available, _ := c.probe(ctx)
	return available
}

// probe returns the cached availability, probing first if needed. A non-nil
// error means the probe was interrupted and nothing was cached.
func (c *ClamAV) probe(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.probed {
		return c.available, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, code, err := c.runner.Run(probeCtx, c.cfg.ClamscanPath, "--version")
	if perr := probeCtx.Err(); perr != nil {
		logging.Ctx(ctx).Warn().Err(perr).Msg("ClamAV probe interrupted, will retry")
		return false, fmt.Errorf("%w: probe: %w", ErrScanAborted, perr)
	}

	c.probed = true
	c.available = err == nil && code == 0
	if c.available {
		c.version = firstLine(out)
		logging.Info().Str("version", c.version).Msg("ClamAV available")
	} else {
		logging.Warn().Err(err).Int("exit_code", code).Msg("ClamAV not available, uploads will not be scanned")
	}
	return c.available, nil
}

// Reset forgets the cached availability so the next scan probes again.
func (c *ClamAV) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probed = false
	c.available = false
	c.version = ""
}

// Scan runs clamscan on path.
func (c *ClamAV) Scan(ctx context.Context, path string) *models.ScanResult {
	start := time.Now()
	result := c.scan(ctx, path)
	result.ScanTimeMs = time.Since(start).Milliseconds()
	return result
}

func (c *ClamAV) scan(ctx context.Context, path string) *models.ScanResult {
	available, err := c.probe(ctx)
	if err != nil {
		return failed(err)
	}
	if !available {
		return &models.ScanResult{Safe: true, Error: strPtr(EngineUnavailableWarning)}
	}

	// Wait only fails when ctx ends, or would end, before a slot frees up.
	if err := c.limiter.Wait(ctx); err != nil {
		return failed(fmt.Errorf("%w: waiting for scan slot: %w", ErrScanAborted, err))
	}

	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.runScan(ctx, path)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrScanAborted):
			logging.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("Antivirus scan aborted")
			return failed(err)
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		default:
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		}
		logging.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("Antivirus scan failed")
		return failed(err)
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()

	scan, ok := res.(*models.ScanResult)
	if !ok {
		return failed(fmt.Errorf("unexpected scan result type %T", res))
	}
	return scan
}

// runScan executes clamscan and maps its exit code. Clean and infected are
// both successful calls as far as the circuit breaker is concerned.
func (c *ClamAV) runScan(ctx context.Context, path string) (*models.ScanResult, error) {
	scanCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	out, code, err := c.runner.Run(scanCtx, c.cfg.ClamscanPath, "--no-summary", "--infected", path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanAborted, ctx.Err())
		}
		if errors.Is(scanCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("scan timed out after %s", c.cfg.Timeout)
		}
		return nil, fmt.Errorf("run clamscan: %w", err)
	}

	switch code {
	case 0:
		return &models.ScanResult{Safe: true}, nil
	case 1:
		virus := parseVirusName(out, path)
		logging.Ctx(ctx).Warn().Str("path", path).Str("virus", virus).Msg("Infected file detected")
		return &models.ScanResult{Infected: true, Virus: strPtr(virus)}, nil
	default:
		return nil, fmt.Errorf("clamscan exited with code %d: %s", code, firstLine(out))
	}
}

// UpdateSignatures runs freshclam and re-probes the engine on success.
// freshclam exits 1 when the database is already current.
func (c *ClamAV) UpdateSignatures(ctx context.Context) bool {
	updCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	out, code, err := c.runner.Run(updCtx, c.cfg.FreshclamPath)
	if err != nil || (code != 0 && code != 1) {
		logging.Ctx(ctx).Error().Err(err).Int("exit_code", code).Str("output", firstLine(out)).Msg("Signature update failed")
		return false
	}

	logging.Ctx(ctx).Info().Int("exit_code", code).Msg("Signature update completed")
	c.Reset()
	return true
}

// Status reports availability, version and circuit state.
func (c *ClamAV) Status(ctx context.Context) Status {
	available := c.IsAvailable(ctx)

	c.mu.Lock()
	version := c.version
	c.mu.Unlock()

	return Status{
		Available:    available,
		Version:      version,
		CircuitState: c.cb.State().String(),
	}
}

// parseVirusName extracts <name> from a "<path>: <name> FOUND" line.
func parseVirusName(output []byte, path string) string {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasSuffix(line, " FOUND") {
			continue
		}
		line = strings.TrimSuffix(line, " FOUND")
		if rest, ok := strings.CutPrefix(line, path+": "); ok {
			return strings.TrimSpace(rest)
		}
		if i := strings.LastIndex(line, ": "); i >= 0 {
			return strings.TrimSpace(line[i+2:])
		}
	}
	return ""
}

func failed(err error) *models.ScanResult {
	return &models.ScanResult{Error: strPtr(err.Error())}
}

func firstLine(b []byte) string {
	line, _, _ := strings.Cut(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(line)
}

func strPtr(s string) *string {
	return &s
}
