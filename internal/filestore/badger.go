// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/govportal/filevault/internal/logging"
	"github.com/govportal/filevault/internal/models"
)

// Key prefix for BadgerDB storage
const fileKeyPrefix = "file:"

// maxConflictRetries bounds retries of read-modify-write transactions that
// lost a race with a concurrent writer.
const maxConflictRetries = 5

// BadgerStore implements Store using BadgerDB.
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

// OpenBadgerStore opens (or creates) a BadgerDB at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for file records: %w", err)
	}
	return NewBadgerStore(db), nil
}

// NewBadgerStore wraps an already opened database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db, now: time.Now}
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func fileKey(id string) []byte {
	return []byte(fileKeyPrefix + id)
}

func getRecord(txn *badger.Txn, id string) (*models.FileRecord, error) {
	item, err := txn.Get(fileKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file record: %w", err)
	}

	var rec models.FileRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal file record: %w", err)
	}
	return &rec, nil
}

func setRecord(txn *badger.Txn, rec *models.FileRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal file record: %w", err)
	}
	if err := txn.Set(fileKey(rec.ID), data); err != nil {
		return fmt.Errorf("set file record: %w", err)
	}
	return nil
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		logging.Debug().Int("attempt", attempt+1).Msg("Retrying file record transaction after conflict")
	}
	return err
}

// FindAll returns every record, oldest first.
func (s *BadgerStore) FindAll(ctx context.Context) ([]*models.FileRecord, error) {
	var records []*models.FileRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(fileKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec models.FileRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(it.Item().Key())).Msg("Skipping unreadable file record")
				continue
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list file records: %w", err)
	}

	sortRecords(records)
	return records, nil
}

// FindByID returns the record with the given id or ErrNotFound.
func (s *BadgerStore) FindByID(ctx context.Context, id string) (*models.FileRecord, error) {
	var rec *models.FileRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Create stores a new record.
func (s *BadgerStore) Create(ctx context.Context, rec *models.FileRecord) (*models.FileRecord, error) {
	stored, err := prepareNew(rec, s.now())
	if err != nil {
		return nil, err
	}

	err = s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(fileKey(stored.ID)); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get file record: %w", err)
		}
		return setRecord(txn, stored)
	})
	if err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

// Update applies a partial update to an existing record.
func (s *BadgerStore) Update(ctx context.Context, id string, upd models.FileUpdate) (*models.FileRecord, error) {
	var updated *models.FileRecord
	err := s.update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		upd.Apply(rec, s.now())
		updated = rec
		return setRecord(txn, rec)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Upsert creates the record under id if it does not exist, otherwise applies upd.
func (s *BadgerStore) Upsert(ctx context.Context, id string, rec *models.FileRecord, upd models.FileUpdate) (*models.FileRecord, error) {
	var result *models.FileRecord
	err := s.update(func(txn *badger.Txn) error {
		existing, err := getRecord(txn, id)
		switch {
		case err == nil:
			upd.Apply(existing, s.now())
			result = existing
			return setRecord(txn, existing)
		case errors.Is(err, ErrNotFound):
			create := rec.Clone()
			if create == nil {
				create = &models.FileRecord{}
			}
			create.ID = id
			stored, err := prepareNew(create, s.now())
			if err != nil {
				return err
			}
			result = stored
			return setRecord(txn, stored)
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return result.Clone(), nil
}

// Delete removes a record by id.
func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	return s.update(func(txn *badger.Txn) error {
		if err := txn.Delete(fileKey(id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete file record: %w", err)
		}
		return nil
	})
}

// Dump writes a full BadgerDB backup stream to w. It can be loaded back with
// badger's DB.Load.
func (s *BadgerStore) Dump(ctx context.Context, w io.Writer) error {
	if _, err := s.db.Backup(w, 0); err != nil {
		return fmt.Errorf("badger backup: %w", err)
	}
	return nil
}
