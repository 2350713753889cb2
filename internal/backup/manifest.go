// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

/*
manifest.go - Manifest Codec

Every backup set carries two JSON documents:

	backup-2026-10-19T02-00-00-000Z/
	├── files/                 archived uploads (<filename>[.gz|.zst])
	├── database.bak           record store dump (includeDatabase only)
	├── manifest.json          files that were archived
	└── backup-info.json       summary, written last

backup-info.json marks the set as complete. Sets without it are never listed,
swept or reported.

Decoding validates every struct. Manifest entries are decoded one at a time
so that a single malformed entry fails only that file's restore.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/govportal/filevault/internal/validation"
)

const (
	manifestFileName   = "manifest.json"
	backupInfoFileName = "backup-info.json"
	filesDirName       = "files"
	databaseDumpName   = "database.bak"
)

// Manifest lists the files archived in one backup set.
type Manifest struct {
	Timestamp  time.Time       `json:"timestamp" validate:"required"`
	FilesCount int             `json:"filesCount" validate:"gte=0"`
	TotalSize  int64           `json:"totalSize" validate:"gte=0"`
	Files      []ManifestEntry `json:"files"`
}

// ManifestEntry describes one archived file.
type ManifestEntry struct {
	ID           string    `json:"id" validate:"required"`
	Filename     string    `json:"filename" validate:"required,basename"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size" validate:"gte=0"`
	MimeType     string    `json:"mimeType"`
	Bucket       string    `json:"bucket" validate:"required,bucket"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BackupInfo is the completion marker and summary of a backup set.
type BackupInfo struct {
	Timestamp       time.Time `json:"timestamp" validate:"required"`
	FilesCount      int       `json:"filesCount" validate:"gte=0"`
	TotalSize       int64     `json:"totalSize" validate:"gte=0"`
	Duration        int64     `json:"duration" validate:"gte=0"`
	Compressed      bool      `json:"compressed"`
	IncludeDatabase bool      `json:"includeDatabase"`
}

// InvalidEntry is a manifest entry that could not be decoded or validated.
type InvalidEntry struct {
	Index int
	Err   error
}

// manifestDocument mirrors Manifest but defers entry decoding.
type manifestDocument struct {
	Timestamp  time.Time         `json:"timestamp" validate:"required"`
	FilesCount int               `json:"filesCount" validate:"gte=0"`
	TotalSize  int64             `json:"totalSize" validate:"gte=0"`
	Files      []json.RawMessage `json:"files"`
}

// EncodeManifest writes m as indented JSON.
func EncodeManifest(w io.Writer, m *Manifest) error {
	if m.Files == nil {
		m.Files = []ManifestEntry{}
	}
	return encodeIndented(w, m)
}

// DecodeManifest reads a manifest. The returned error covers only the
// document itself; entries that fail are returned as InvalidEntry values and
// left out of Manifest.Files.
func DecodeManifest(r io.Reader) (*Manifest, []InvalidEntry, error) {
	var doc manifestDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("decode manifest: %w", err)
	}
	if verr := validation.ValidateStruct(&doc); verr != nil {
		return nil, nil, fmt.Errorf("invalid manifest: %w", verr)
	}

	m := &Manifest{
		Timestamp:  doc.Timestamp,
		FilesCount: doc.FilesCount,
		TotalSize:  doc.TotalSize,
		Files:      make([]ManifestEntry, 0, len(doc.Files)),
	}

	var invalid []InvalidEntry
	for i, raw := range doc.Files {
		var entry ManifestEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			invalid = append(invalid, InvalidEntry{Index: i, Err: fmt.Errorf("decode entry: %w", err)})
			continue
		}
		if verr := validation.ValidateStruct(&entry); verr != nil {
			invalid = append(invalid, InvalidEntry{Index: i, Err: verr})
			continue
		}
		m.Files = append(m.Files, entry)
	}

	return m, invalid, nil
}

// EncodeBackupInfo writes info as indented JSON.
func EncodeBackupInfo(w io.Writer, info *BackupInfo) error {
	return encodeIndented(w, info)
}

// DecodeBackupInfo reads and validates a BackupInfo document.
func DecodeBackupInfo(r io.Reader) (*BackupInfo, error) {
	var info BackupInfo
	if err := json.NewDecoder(r).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode backup info: %w", err)
	}
	if verr := validation.ValidateStruct(&info); verr != nil {
		return nil, fmt.Errorf("invalid backup info: %w", verr)
	}
	return &info, nil
}

func encodeIndented(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// writeDocument writes a JSON document to a temp file in the same directory
// and renames it into place, so readers never see a half-written file.
func writeDocument(path string, encode func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName) //nolint:errcheck // Best effort cleanup on error
		}
	}()

	if err = encode(tmp); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err = os.Chmod(tmpName, 0o640); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readManifest opens <setPath>/manifest.json. A missing file maps to
// ErrManifestNotFound.
//
//nolint:gosec // G304: setPath is a backup set under the configured backup directory
func readManifest(setPath string) (*Manifest, []InvalidEntry, error) {
	f, err := os.Open(filepath.Join(setPath, manifestFileName))
	if os.IsNotExist(err) {
		return nil, nil, ErrManifestNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	return DecodeManifest(f)
}

// readBackupInfo opens <setPath>/backup-info.json.
//
//nolint:gosec // G304: setPath is a backup set under the configured backup directory
func readBackupInfo(setPath string) (*BackupInfo, error) {
	f, err := os.Open(filepath.Join(setPath, backupInfoFileName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return DecodeBackupInfo(f)
}
