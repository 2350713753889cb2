// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package models

import (
	"time"
)

// FileRecord is the store's view of one uploaded file.
//
// Path is where the bytes live. It is usually absolute; relative paths are
// resolved against the upload directory by the backup engine.
type FileRecord struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename" validate:"required,basename"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size" validate:"gte=0"`
	Path         string    `json:"path" validate:"required"`
	Bucket       string    `json:"bucket" validate:"required,bucket"`
	Scanned      bool      `json:"scanned"`
	Safe         bool      `json:"safe"`
	ScanResult   *string   `json:"scanResult"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Clone returns a deep copy so callers cannot mutate a stored record.
func (r *FileRecord) Clone() *FileRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.ScanResult != nil {
		s := *r.ScanResult
		c.ScanResult = &s
	}
	return &c
}

// State derives the scan state from Scanned, Safe and ScanResult.
func (r *FileRecord) State() ScanState {
	if !r.Scanned {
		return ScanStateUnscanned
	}
	if r.Safe {
		return ScanStateSafe
	}
	if r.ScanResult == nil {
		return ScanStateFailed
	}
	return stateFromResult(*r.ScanResult)
}

// FileUpdate is a partial update. Nil fields are left untouched.
type FileUpdate struct {
	Filename     *string
	OriginalName *string
	MimeType     *string
	Size         *int64
	Path         *string
	Bucket       *string
	Scanned      *bool
	Safe         *bool
	ScanResult   *string
}

// Apply copies the non-nil fields onto rec and bumps UpdatedAt.
func (u FileUpdate) Apply(rec *FileRecord, now time.Time) {
	if u.Filename != nil {
		rec.Filename = *u.Filename
	}
	if u.OriginalName != nil {
		rec.OriginalName = *u.OriginalName
	}
	if u.MimeType != nil {
		rec.MimeType = *u.MimeType
	}
	if u.Size != nil {
		rec.Size = *u.Size
	}
	if u.Path != nil {
		rec.Path = *u.Path
	}
	if u.Bucket != nil {
		rec.Bucket = *u.Bucket
	}
	if u.Scanned != nil {
		rec.Scanned = *u.Scanned
	}
	if u.Safe != nil {
		rec.Safe = *u.Safe
	}
	if u.ScanResult != nil {
		s := *u.ScanResult
		rec.ScanResult = &s
	}
	rec.UpdatedAt = now
}

// Verdict builds the single terminal update the verification pipeline
// applies to a record.
func Verdict(safe bool, scanResult string) FileUpdate {
	scanned := true
	return FileUpdate{
		Scanned:    &scanned,
		Safe:       &safe,
		ScanResult: &scanResult,
	}
}
