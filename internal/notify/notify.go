// Package notify delivers loan servicing events to external channels.
// Delivery is fire-and-forget: callers log failures, never propagate them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"lamf-engine/internal/config"
	"lamf-engine/pkg/utils"
)

// Event kinds emitted by the engine.
const (
	KindMarginCall     = "MARGIN_CALL"
	KindMarginCallDue  = "MARGIN_CALL_ESCALATED"
	KindPaymentApplied = "PAYMENT_APPLIED"
	KindLoanClosed     = "LOAN_CLOSED"
	KindRebalanceNeed  = "REBALANCE_NEEDED"
)

// Sink defines the interface for sending loan notifications.
type Sink interface {
	Notify(ctx context.Context, loanID, kind, message string) error
}

// NewSink builds a sink from configuration. Disabled notifications yield a
// NoopSink.
func NewSink(cfg *config.NotificationConfig) Sink {
	if cfg == nil || !cfg.Enabled {
		return NewNoopSink()
	}
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		return NewWebhookSink(cfg.Webhook)
	}
	return NewNoopSink()
}

// WebhookSink posts events to an HTTP webhook. Transient delivery failures
// are retried with exponential backoff.
type WebhookSink struct {
	url    string
	client *http.Client
	retry  utils.RetryConfig
}

// NewWebhookSink creates a new WebhookSink.
func NewWebhookSink(cfg config.WebhookConfig) *WebhookSink {
	return &WebhookSink{
		url: cfg.URL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry: utils.DefaultRetryConfig(),
	}
}

// Notify sends a single event via webhook.
func (w *WebhookSink) Notify(ctx context.Context, loanID, kind, message string) error {
	payload := map[string]interface{}{
		"loan_id":   loanID,
		"kind":      kind,
		"message":   message,
		"timestamp": time.Now().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	return utils.Retry(ctx, w.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("creating webhook request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "LAMFEngine/1.0")

		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("sending webhook: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	})
}

// NoopSink is a sink that does nothing (for tests or disabled notifications).
type NoopSink struct{}

// NewNoopSink creates a new NoopSink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

// Notify does nothing.
func (n *NoopSink) Notify(ctx context.Context, loanID, kind, message string) error {
	return nil
}
