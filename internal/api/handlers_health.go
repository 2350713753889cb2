// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package api

import (
	"net/http"
	"time"

	"github.com/govportal/filevault/internal/models"
)

// Health reports overall status. The service is "degraded" while no
// antivirus engine is reachable, since uploads are then accepted unscanned.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := models.HealthStatus{
		Status:  "healthy",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Seconds(),
	}

	if h.antivirus != nil {
		st := h.antivirus.Status(r.Context())
		health.AntivirusAvailable = st.Available
		health.AntivirusCircuit = st.CircuitState
		if !st.Available {
			health.Status = "degraded"
		}
	}
	if h.backups != nil {
		health.BackupRunning = h.backups.IsRunning()
	}

	respondSuccess(w, http.StatusOK, health)
}

// HealthLive returns 200 while the process is alive.
// GET /health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}
