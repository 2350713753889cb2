// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/govportal/filevault/internal/filestore"
	"github.com/govportal/filevault/internal/models"
	"github.com/govportal/filevault/internal/notify"
)

// testEpoch is the first instant returned by a test clock.
var testEpoch = time.Date(2026, 10, 19, 2, 0, 0, 0, time.UTC)

// stepClock returns a strictly increasing time on every call, so consecutive
// backup runs never share a set name.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock() *stepClock {
	return &stepClock{now: testEpoch, step: time.Second}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

type sentNotification struct {
	kind    notify.Kind
	message string
}

// recordingNotifier captures notifications for assertions
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, kind notify.Kind, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{kind: kind, message: message})
	return nil
}

func (n *recordingNotifier) last() sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentNotification{}
	}
	return n.sent[len(n.sent)-1]
}

// recordingVerifier captures submitted ids
type recordingVerifier struct {
	mu  sync.Mutex
	ids []string
}

func (v *recordingVerifier) Submit(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ids = append(v.ids, id)
}

func (v *recordingVerifier) submitted() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.ids...)
}

// testEnv holds the common test environment setup
type testEnv struct {
	backupDir string
	uploadDir string
	store     *filestore.MemoryStore
	notifier  *recordingNotifier
	verifier  *recordingVerifier
	clock     *stepClock
	svc       *Service
}

// newTestEnv creates a service over temp directories and an in-memory store.
// mutate may adjust the configuration before the service is built.
func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	root := t.TempDir()
	env := &testEnv{
		backupDir: filepath.Join(root, "backups"),
		uploadDir: filepath.Join(root, "uploads"),
		store:     filestore.NewMemoryStore(),
		notifier:  &recordingNotifier{},
		verifier:  &recordingVerifier{},
		clock:     newStepClock(),
	}

	cfg := &Config{
		BackupDir:     env.backupDir,
		UploadDir:     env.uploadDir,
		RetentionDays: 30,
		Compression: CompressionConfig{
			Enabled:   true,
			Algorithm: AlgorithmGzip,
			Level:     6,
		},
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	svc, err := NewService(cfg, env.store, env.notifier)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	svc.now = env.clock.Now
	svc.SetVerifier(env.verifier)
	env.svc = svc

	return env
}

// addUpload writes content to <uploadDir>/<bucket>/<filename> and registers a record for it.
func (e *testEnv) addUpload(t *testing.T, bucket, filename, content string) *models.FileRecord {
	t.Helper()

	path := filepath.Join(e.uploadDir, bucket, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	return e.addRecord(t, bucket, filename, path, int64(len(content)))
}

// addRecord registers a record without touching the filesystem.
func (e *testEnv) addRecord(t *testing.T, bucket, filename, path string, size int64) *models.FileRecord {
	t.Helper()

	rec, err := e.store.Create(context.Background(), &models.FileRecord{
		Filename:     filename,
		OriginalName: "original-" + filename,
		MimeType:     "application/pdf",
		Size:         size,
		Path:         path,
		Bucket:       bucket,
	})
	if err != nil {
		t.Fatalf("store.Create() error = %v", err)
	}
	return rec
}

// writeSet creates a complete backup set directory recorded at ts.
func (e *testEnv) writeSet(t *testing.T, ts time.Time) string {
	t.Helper()

	setPath := filepath.Join(e.backupDir, SetName(ts))
	if err := os.MkdirAll(filepath.Join(setPath, filesDirName), 0o750); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	writeJSON(t, filepath.Join(setPath, manifestFileName), func(f *os.File) error {
		return EncodeManifest(f, &Manifest{Timestamp: ts})
	})
	writeJSON(t, filepath.Join(setPath, backupInfoFileName), func(f *os.File) error {
		return EncodeBackupInfo(f, &BackupInfo{Timestamp: ts})
	})
	return setPath
}

func writeJSON(t *testing.T, path string, encode func(*os.File) error) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create(%s) error = %v", path, err)
	}
	defer f.Close()
	if err := encode(f); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func readFileString(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	return string(data)
}

func mustReadManifest(t *testing.T, setPath string) *Manifest {
	t.Helper()

	m, invalid, err := readManifest(setPath)
	if err != nil {
		t.Fatalf("readManifest() error = %v", err)
	}
	if len(invalid) != 0 {
		t.Fatalf("readManifest() invalid entries = %v", invalid)
	}
	return m
}

// listSetDirs returns every directory name under the backup root.
func listSetDirs(t *testing.T, backupDir string) []string {
	t.Helper()

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), setNamePrefix) {
			names = append(names, e.Name())
		}
	}
	return names
}
