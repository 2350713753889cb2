// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package filestore

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/govportal/filevault/internal/models"
)

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.FileRecord
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*models.FileRecord),
		now:     time.Now,
	}
}

// FindAll returns copies of every record, oldest first.
func (s *MemoryStore) FindAll(ctx context.Context) ([]*models.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*models.FileRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec.Clone())
	}
	sortRecords(records)
	return records, nil
}

// FindByID returns a copy of the record or ErrNotFound.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*models.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// Create stores a copy of rec.
func (s *MemoryStore) Create(ctx context.Context, rec *models.FileRecord) (*models.FileRecord, error) {
	stored, err := prepareNew(rec, s.now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[stored.ID]; exists {
		return nil, ErrAlreadyExists
	}
	s.records[stored.ID] = stored
	return stored.Clone(), nil
}

// Update applies upd to the stored record.
func (s *MemoryStore) Update(ctx context.Context, id string, upd models.FileUpdate) (*models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	upd.Apply(rec, s.now())
	return rec.Clone(), nil
}

// Upsert creates rec under id or applies upd to the existing record.
func (s *MemoryStore) Upsert(ctx context.Context, id string, rec *models.FileRecord, upd models.FileUpdate) (*models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[id]; ok {
		upd.Apply(existing, s.now())
		return existing.Clone(), nil
	}

	create := rec.Clone()
	if create == nil {
		create = &models.FileRecord{}
	}
	create.ID = id
	stored, err := prepareNew(create, s.now())
	if err != nil {
		return nil, err
	}
	s.records[id] = stored
	return stored.Clone(), nil
}

// Delete removes a record. Unknown ids are ignored.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

// Count returns the number of records.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Dump writes every record as one JSON object per line.
func (s *MemoryStore) Dump(ctx context.Context, w io.Writer) error {
	records, err := s.FindAll(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode file record %s: %w", rec.ID, err)
		}
	}
	return nil
}
