// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

// Package notify delivers operator notifications about backup and restore
// outcomes.
//
// Sinks:
//   - LogNotifier: writes the notification to the structured log
//   - WebhookNotifier: POSTs a JSON payload to NOTIFY_WEBHOOK_URL
//   - Multi: fans one notification out to several sinks
//
// Delivery is best-effort. Callers log a returned error and carry on; a
// failing sink never fails a backup.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/govportal/filevault/internal/logging"
)

// Kind classifies a notification.
type Kind string

const (
	Success Kind = "success"
	Failure Kind = "failure"
)

// Notifier is the notification sink.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, message string) error
}

// LogNotifier writes notifications to the global logger.
type LogNotifier struct{}

// Notify logs successes at info and failures at error level.
func (LogNotifier) Notify(ctx context.Context, kind Kind, message string) error {
	event := logging.Ctx(ctx).Info()
	if kind == Failure {
		event = logging.Ctx(ctx).Error()
	}
	event.Str("kind", string(kind)).Str("notification", message).Msg("Operator notification")
	return nil
}

// Multi sends each notification to every sink and joins their errors.
type Multi []Notifier

// Notify delivers to all sinks even if some fail.
func (m Multi) Notify(ctx context.Context, kind Kind, message string) error {
	var errs []error
	for i, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, kind, message); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, Kind, string) error { return nil }
