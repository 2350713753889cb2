// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

// Package filestore holds FileRecords: the metadata and scan state of every
// uploaded file.
//
// Two implementations are provided:
//   - BadgerStore: durable, backed by BadgerDB (default)
//   - MemoryStore: process-local, for tests and STORE_IN_MEMORY=true
//
// Both support concurrent updates of different records. Update on the same id
// is serialized (Badger transactions retry on conflict, MemoryStore holds a
// mutex).
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/govportal/filevault/internal/models"
	"github.com/govportal/filevault/internal/validation"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("file record not found")

	// ErrAlreadyExists is returned by Create when the id is taken.
	ErrAlreadyExists = errors.New("file record already exists")
)

// Store is the file record store consumed by the backup engine, the
// verification pipeline and upload intake.
type Store interface {
	FindAll(ctx context.Context) ([]*models.FileRecord, error)
	FindByID(ctx context.Context, id string) (*models.FileRecord, error)

	// Create inserts rec. An empty ID is replaced with a new UUID; zero
	// timestamps are set to now.
	Create(ctx context.Context, rec *models.FileRecord) (*models.FileRecord, error)

	// Update applies upd to an existing record, or returns ErrNotFound.
	Update(ctx context.Context, id string, upd models.FileUpdate) (*models.FileRecord, error)

	// Upsert creates rec under id when the id is unknown, otherwise applies upd.
	Upsert(ctx context.Context, id string, rec *models.FileRecord, upd models.FileUpdate) (*models.FileRecord, error)

	// Delete removes the record. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

// Dumper is implemented by stores that can write a full copy of themselves,
// used for the optional database.bak inside a backup set.
type Dumper interface {
	Dump(ctx context.Context, w io.Writer) error
}

// prepareNew fills defaults on a record about to be inserted and validates it.
func prepareNew(rec *models.FileRecord, now time.Time) (*models.FileRecord, error) {
	if rec == nil {
		return nil, errors.New("nil file record")
	}
	stored := rec.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	if verr := validation.ValidateStruct(stored); verr != nil {
		return nil, fmt.Errorf("invalid file record: %w", verr)
	}
	return stored, nil
}

// sortRecords orders records oldest first, by id on ties, so FindAll is stable
// across implementations.
func sortRecords(records []*models.FileRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}
