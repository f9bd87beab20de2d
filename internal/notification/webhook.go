package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// WebhookNotifier POSTs alerts as JSON to a generic HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type webhookPayload struct {
	Level   string            `json:"level"`
	Title   string            `json:"title"`
	Pair    string            `json:"pair,omitempty"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	TS      string            `json:"ts"`
}

// Send POSTs alert as JSON. Any 2xx status counts as delivered.
func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	payload := webhookPayload{
		Level:   string(alert.Level),
		Title:   alert.Title,
		Pair:    alert.Pair,
		Message: alert.Message,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
	}
	if len(alert.Fields) > 0 {
		payload.Fields = make(map[string]string, len(alert.Fields))
		for _, f := range alert.Fields {
			payload.Fields[f.Key] = f.Value
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}

	slog.Debug("webhook alert sent", "pair", alert.Pair, "status", resp.StatusCode)
	return nil
}
