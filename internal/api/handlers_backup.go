// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/govportal/filevault/internal/backup"
)

// Cached listing keys. Both walk the backup directory.
const (
	cacheKeyBackupList  = "backups:list"
	cacheKeyBackupStats = "backups:stats"
)

// checkBackupsAvailable checks if the backup engine is configured
func (h *Handler) checkBackupsAvailable(w http.ResponseWriter, r *http.Request) bool {
	if h.backups == nil {
		respondError(w, r, http.StatusServiceUnavailable, codeUnavailable, "Backup functionality is not enabled", nil)
		return false
	}
	return true
}

// ListBackups lists complete backup sets, newest first.
// GET /api/v1/backups
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	if !h.checkBackupsAvailable(w, r) {
		return
	}

	sets, err := h.backupSets.GetOrLoad(cacheKeyBackupList, func() ([]backup.BackupSet, error) {
		return h.backups.ListBackups(r.Context())
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeInternal, "Failed to list backups", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"backups": sets,
		"count":   len(sets),
		"running": h.backups.IsRunning(),
	})
}

// BackupStats summarizes the backup sets.
// GET /api/v1/backups/stats
func (h *Handler) BackupStats(w http.ResponseWriter, r *http.Request) {
	if !h.checkBackupsAvailable(w, r) {
		return
	}

	stats, err := h.backupStats.GetOrLoad(cacheKeyBackupStats, func() (*backup.Stats, error) {
		return h.backups.GetBackupStats(r.Context())
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeInternal, "Failed to compute backup stats", err)
		return
	}

	respondSuccess(w, http.StatusOK, stats)
}

// CreateBackup runs a backup in the foreground and returns its result.
// POST /api/v1/backups
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	if !h.checkBackupsAvailable(w, r) {
		return
	}

	result := h.backups.CreateBackup(r.Context())
	h.invalidateBackupCache()
	switch {
	case result.Success:
		respondSuccess(w, http.StatusCreated, result)
	case result.Error == backup.ErrBackupInProgress.Error():
		respondErrorWithData(w, r, http.StatusConflict, codeConflict, result.Error, result, nil)
	default:
		respondErrorWithData(w, r, http.StatusInternalServerError, codeInternal, result.Error, result, nil)
	}
}

// RestoreBackup restores one backup set by name.
// POST /api/v1/backups/{name}/restore
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	if !h.checkBackupsAvailable(w, r) {
		return
	}

	setPath, err := h.backups.ResolveSet(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	result, err := h.backups.RestoreBackup(r.Context(), setPath)
	h.invalidateBackupCache()
	switch {
	case errors.Is(err, backup.ErrManifestNotFound):
		respondErrorWithData(w, r, http.StatusNotFound, codeNotFound, "Backup set not found or has no manifest", result, nil)
	case err != nil:
		respondErrorWithData(w, r, http.StatusInternalServerError, codeInternal, "Restore failed", result, err)
	default:
		respondSuccess(w, http.StatusOK, result)
	}
}

// invalidateBackupCache drops cached listings after a run that may have
// created or swept sets. Scheduled runs are picked up when the TTL expires.
func (h *Handler) invalidateBackupCache() {
	h.backupSets.Clear()
	h.backupStats.Clear()
}
