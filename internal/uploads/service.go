// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/govportal/filevault/internal/logging"
	"github.com/govportal/filevault/internal/metrics"
	"github.com/govportal/filevault/internal/models"
	"github.com/govportal/filevault/internal/validation"
)

const (
	// DefaultBucket is used when an upload names no bucket.
	DefaultBucket = "uploads"

	// DefaultMaxSize is the upload limit when Config.MaxSize is not positive.
	DefaultMaxSize int64 = 50 << 20

	defaultMimeType = "application/octet-stream"
)

var (
	// ErrTooLarge is returned when the body exceeds Config.MaxSize.
	ErrTooLarge = errors.New("upload exceeds maximum size")

	// ErrInvalidBucket is returned for bucket labels that cannot be a
	// directory name.
	ErrInvalidBucket = errors.New("invalid bucket")
)

// extensionPattern matches extensions kept on stored filenames.
var extensionPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// Store is the part of filestore.Store upload intake needs.
type Store interface {
	FindByID(ctx context.Context, id string) (*models.FileRecord, error)
	Create(ctx context.Context, rec *models.FileRecord) (*models.FileRecord, error)
	Delete(ctx context.Context, id string) error
}

// Verifier queues a record for background verification.
type Verifier interface {
	Submit(id string)
}

// DerivativeRemover deletes image derivatives of a stored file.
type DerivativeRemover interface {
	Cleanup(src string) error
}

// Config holds upload intake settings
type Config struct {
	UploadDir string
	MaxSize   int64
}

// Service stores uploads and deletes them again.
type Service struct {
	cfg         Config
	store       Store
	verifier    Verifier
	derivatives DerivativeRemover
}

// New creates a Service. derivatives may be nil.
func New(cfg Config, store Store, verifier Verifier, derivatives DerivativeRemover) *Service {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	return &Service{
		cfg:         cfg,
		store:       store,
		verifier:    verifier,
		derivatives: derivatives,
	}
}

// MaxSize returns the configured upload limit in bytes.
func (s *Service) MaxSize() int64 {
	return s.cfg.MaxSize
}

// Save stores r as a new upload and submits it for verification. The
// returned record is unscanned.
func (s *Service) Save(ctx context.Context, bucket, originalName, mimeType string, r io.Reader) (*models.FileRecord, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	if !validation.IsValidBucket(bucket) {
		metrics.RecordUpload("error", 0)
		return nil, fmt.Errorf("%w: %q", ErrInvalidBucket, bucket)
	}

	originalName = filepath.Base(strings.ReplaceAll(originalName, `\`, "/"))
	if originalName == "." || originalName == "/" {
		originalName = ""
	}
	ext := storedExtension(originalName)
	if mimeType == "" {
		mimeType = mime.TypeByExtension(ext)
	}
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	id := uuid.NewString()
	filename := id + ext
	if originalName == "" {
		originalName = filename
	}
	dir := filepath.Join(s.cfg.UploadDir, bucket)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		metrics.RecordUpload("error", 0)
		return nil, fmt.Errorf("create bucket directory: %w", err)
	}
	path := filepath.Join(dir, filename)

	size, err := s.write(path, r)
	if err != nil {
		os.Remove(path) //nolint:errcheck // Best effort cleanup of partial upload
		if errors.Is(err, ErrTooLarge) {
			metrics.RecordUpload("too_large", size)
		} else {
			metrics.RecordUpload("error", size)
		}
		return nil, err
	}

	rec, err := s.store.Create(ctx, &models.FileRecord{
		ID:           id,
		Filename:     filename,
		OriginalName: originalName,
		MimeType:     mimeType,
		Size:         size,
		Path:         path,
		Bucket:       bucket,
	})
	if err != nil {
		os.Remove(path) //nolint:errcheck // Best effort cleanup, the record was never created
		metrics.RecordUpload("error", size)
		return nil, fmt.Errorf("create file record: %w", err)
	}

	metrics.RecordUpload("accepted", size)
	logging.Ctx(ctx).Info().
		Str("file_id", rec.ID).
		Str("bucket", bucket).
		Str("mime_type", mimeType).
		Str("size", humanize.IBytes(uint64(size))). //nolint:gosec // G115: size is non-negative
		Msg("Upload stored, verification queued")

	s.verifier.Submit(rec.ID)
	return rec, nil
}

// write copies at most MaxSize bytes from r to a new file at path.
func (s *Service) write(path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640) //nolint:gosec // G304: path is built from a generated UUID
	if err != nil {
		return 0, fmt.Errorf("create upload file: %w", err)
	}

	n, copyErr := io.Copy(f, io.LimitReader(r, s.cfg.MaxSize+1))
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		return n, fmt.Errorf("write upload: %w", copyErr)
	case n > s.cfg.MaxSize:
		return n, fmt.Errorf("%w of %s", ErrTooLarge, humanize.IBytes(uint64(s.cfg.MaxSize))) //nolint:gosec // G115: MaxSize is positive
	case closeErr != nil:
		return n, fmt.Errorf("close upload: %w", closeErr)
	}
	return n, nil
}

// Get returns the record for id.
func (s *Service) Get(ctx context.Context, id string) (*models.FileRecord, error) {
	return s.store.FindByID(ctx, id)
}

// Delete removes the stored file, its derivatives and the record. A missing
// file on disk is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	path := rec.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cfg.UploadDir, path)
	}

	log := logging.Ctx(ctx).With().Str("file_id", id).Str("path", path).Logger()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	if s.derivatives != nil {
		if err := s.derivatives.Cleanup(path); err != nil {
			log.Warn().Err(err).Msg("Failed to remove image derivatives")
		}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	log.Info().Msg("Upload deleted")
	return nil
}

// storedExtension returns the lowercased extension of name when it is safe
// to reuse on disk, otherwise "".
func storedExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if !extensionPattern.MatchString(ext) {
		return ""
	}
	return ext
}
