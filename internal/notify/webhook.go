// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

// WebhookPayload is the JSON body POSTed to the webhook.
type WebhookPayload struct {
	Event     string    `json:"event"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// WebhookNotifier posts notifications to an HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier validates rawURL and returns a notifier for it.
func NewWebhookNotifier(rawURL string) (*WebhookNotifier, error) {
	if err := ValidateWebhookURL(rawURL); err != nil {
		return nil, fmt.Errorf("invalid webhook URL: %w", err)
	}
	return &WebhookNotifier{
		url: rawURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// ValidateWebhookURL requires an absolute http(s) URL with a host.
func ValidateWebhookURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// Notify sends one notification. Any non-2xx response is an error.
func (w *WebhookNotifier) Notify(ctx context.Context, kind Kind, message string) error {
	payload, err := json.Marshal(WebhookPayload{
		Event:     "filevault.backup",
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "FileVault-Notifier/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		body = []byte("(failed to read response)")
	}
	return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(body))
}
