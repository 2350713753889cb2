// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package api

import (
	"net/http"
)

func (h *Handler) checkAntivirusAvailable(w http.ResponseWriter, r *http.Request) bool {
	if h.antivirus == nil {
		respondError(w, r, http.StatusServiceUnavailable, codeUnavailable, "Antivirus integration is not configured", nil)
		return false
	}
	return true
}

// AntivirusStatus reports engine availability, version and breaker state.
// GET /api/v1/antivirus/status
func (h *Handler) AntivirusStatus(w http.ResponseWriter, r *http.Request) {
	if !h.checkAntivirusAvailable(w, r) {
		return
	}
	respondSuccess(w, http.StatusOK, h.antivirus.Status(r.Context()))
}

// UpdateSignatures refreshes the virus signature database.
// POST /api/v1/antivirus/update
func (h *Handler) UpdateSignatures(w http.ResponseWriter, r *http.Request) {
	if !h.checkAntivirusAvailable(w, r) {
		return
	}

	if !h.antivirus.UpdateSignatures(r.Context()) {
		respondError(w, r, http.StatusBadGateway, "UPDATE_FAILED", "Signature update failed, see server logs", nil)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]bool{"updated": true})
}
