// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package models

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status             string  `json:"status"` // healthy, degraded
	Version            string  `json:"version"`
	Uptime             float64 `json:"uptime"`
	AntivirusAvailable bool    `json:"antivirusAvailable"`
	AntivirusCircuit   string  `json:"antivirusCircuit,omitempty"`
	BackupRunning      bool    `json:"backupRunning"`
}
