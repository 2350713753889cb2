// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/govportal/filevault/internal/antivirus"
	"github.com/govportal/filevault/internal/backup"
	"github.com/govportal/filevault/internal/filestore"
	"github.com/govportal/filevault/internal/models"
	"github.com/govportal/filevault/internal/uploads"
)

type recordingVerifier struct {
	mu  sync.Mutex
	ids []string
}

func (v *recordingVerifier) Submit(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ids = append(v.ids, id)
}

// fakeBackups is a scripted BackupService.
type fakeBackups struct {
	createResult  *backup.Result
	sets          []backup.BackupSet
	stats         *backup.Stats
	restoreResult *backup.RestoreResult
	restoreErr    error
	restoredPath  string
	running       bool
	listCalls     int
}

func (f *fakeBackups) CreateBackup(context.Context) *backup.Result { return f.createResult }

func (f *fakeBackups) ListBackups(context.Context) ([]backup.BackupSet, error) {
	f.listCalls++
	return f.sets, nil
}

func (f *fakeBackups) GetBackupStats(context.Context) (*backup.Stats, error) { return f.stats, nil }

func (f *fakeBackups) ResolveSet(name string) (string, error) {
	if !backup.IsSetName(name) {
		return "", fmt.Errorf("%w: %q", backup.ErrInvalidSetName, name)
	}
	return filepath.Join("/data/backups", name), nil
}

func (f *fakeBackups) RestoreBackup(_ context.Context, setPath string) (*backup.RestoreResult, error) {
	f.restoredPath = setPath
	return f.restoreResult, f.restoreErr
}

func (f *fakeBackups) IsRunning() bool { return f.running }

// fakeAntivirus is a scripted AntivirusService.
type fakeAntivirus struct {
	status    antivirus.Status
	updateOK  bool
	updateRan bool
}

func (f *fakeAntivirus) Status(context.Context) antivirus.Status { return f.status }

func (f *fakeAntivirus) UpdateSignatures(context.Context) bool {
	f.updateRan = true
	return f.updateOK
}

type testServer struct {
	handler  http.Handler
	store    *filestore.MemoryStore
	verifier *recordingVerifier
	backups  *fakeBackups
	av       *fakeAntivirus
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()

	store := filestore.NewMemoryStore()
	verifier := &recordingVerifier{}
	files := uploads.New(uploads.Config{UploadDir: t.TempDir(), MaxSize: maxUpload}, store, verifier, nil)
	backups := &fakeBackups{}
	av := &fakeAntivirus{status: antivirus.Status{Available: true, Version: "ClamAV 1.3.1", CircuitState: "closed"}, updateOK: true}

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	h := NewHandler(Dependencies{Files: files, Backups: backups, Antivirus: av}, "test")

	return &testServer{
		handler:  NewRouter(h, cfg).Setup(),
		store:    store,
		verifier: verifier,
		backups:  backups,
		av:       av,
	}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// envelope mirrors models.APIResponse with Data left undecoded.
type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data %s: %v", env.Data, err)
		}
	}
	return env
}

func multipartUpload(t *testing.T, fields map[string]string, filename, contentType string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart() error = %v", err)
		}
		if _, err := io.Copy(part, bytes.NewReader(content)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var testSetTime = time.Date(2026, 10, 18, 2, 0, 0, 0, time.UTC)
