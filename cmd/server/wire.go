// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package main

import (
	"fmt"
	"io"

	"github.com/govportal/filevault/internal/config"
	"github.com/govportal/filevault/internal/filestore"
	"github.com/govportal/filevault/internal/logging"
	"github.com/govportal/filevault/internal/notify"
)

// openStore returns the configured record store and a closer for it.
func openStore(cfg *config.Config) (filestore.Store, io.Closer, error) {
	if cfg.Store.InMemory {
		logging.Warn().Msg("Using in-memory record store, records are lost on restart")
		return filestore.NewMemoryStore(), io.NopCloser(nil), nil
	}

	store, err := filestore.OpenBadgerStore(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open record store %s: %w", cfg.Store.Path, err)
	}
	logging.Info().Str("path", cfg.Store.Path).Msg("Record store opened")
	return store, store, nil
}

// buildNotifier always logs and adds the webhook sink when configured.
func buildNotifier(cfg *config.Config) (notify.Notifier, error) {
	if cfg.Notify.WebhookURL == "" {
		return notify.LogNotifier{}, nil
	}
	webhook, err := notify.NewWebhookNotifier(cfg.Notify.WebhookURL)
	if err != nil {
		return nil, err
	}
	return notify.Multi{notify.LogNotifier{}, webhook}, nil
}
