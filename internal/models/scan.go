// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package models

import (
	"strings"
)

// ScanResult is one antivirus verdict. It is never persisted on its own;
// the pipeline folds it into the FileRecord.
type ScanResult struct {
	Safe       bool    `json:"safe"`
	Infected   bool    `json:"infected"`
	Virus      *string `json:"virus"`
	Error      *string `json:"error"`
	ScanTimeMs int64   `json:"scanTimeMs"`
}

// ScanState is the lifecycle position of a FileRecord.
type ScanState string

const (
	ScanStateUnscanned ScanState = "unscanned"
	ScanStateSafe      ScanState = "safe"
	ScanStateInfected  ScanState = "infected"
	ScanStateFailed    ScanState = "scan_failed"
	ScanStateError     ScanState = "error"
)

// Persisted scanResult vocabulary.
const (
	ScanResultClean        = "CLEAN"
	scanPrefixInfected     = "INFECTED: "
	scanPrefixFailed       = "SCAN_FAILED: "
	scanPrefixError        = "ERROR: "
	scanPrefixCleanWarning = "CLEAN: "
)

// CleanResult returns "CLEAN", or "CLEAN: <warning>" when the scan passed
// with an annotation (for example when no engine is installed).
func CleanResult(warning string) string {
	if warning == "" {
		return ScanResultClean
	}
	return scanPrefixCleanWarning + warning
}

// InfectedResult returns "INFECTED: <virus>".
func InfectedResult(virus string) string {
	if virus == "" {
		virus = "unknown"
	}
	return scanPrefixInfected + virus
}

// ScanFailedResult returns "SCAN_FAILED: <reason>".
func ScanFailedResult(reason string) string {
	return scanPrefixFailed + reason
}

// ErrorResult returns "ERROR: <reason>".
func ErrorResult(reason string) string {
	return scanPrefixError + reason
}

func stateFromResult(result string) ScanState {
	switch {
	case strings.HasPrefix(result, scanPrefixInfected):
		return ScanStateInfected
	case strings.HasPrefix(result, scanPrefixError):
		return ScanStateError
	default:
		return ScanStateFailed
	}
}

// VirusName returns the virus name or "".
func (s *ScanResult) VirusName() string {
	if s.Virus == nil {
		return ""
	}
	return *s.Virus
}

// ErrorMessage returns the error annotation or "".
func (s *ScanResult) ErrorMessage() string {
	if s.Error == nil {
		return ""
	}
	return *s.Error
}
