// Package notification delivers signal alerts to external channels
// (Telegram, webhooks, the log).
package notification

import (
	"context"
	"errors"
	"log/slog"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Field is one labelled line of an alert body, kept in display order.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Pair    string     `json:"pair,omitempty"`
	Message string     `json:"message"`
	Fields  []Field    `json:"fields,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to a structured logger (useful for development).
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a log-based notifier. nil uses slog.Default().
func NewLogNotifier(l *slog.Logger) *LogNotifier {
	if l == nil {
		l = slog.Default()
	}
	return &LogNotifier{log: l}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	attrs := []any{"alert_level", string(alert.Level), "title", alert.Title, "message", alert.Message}
	if alert.Pair != "" {
		attrs = append(attrs, "pair", alert.Pair)
	}
	for _, f := range alert.Fields {
		attrs = append(attrs, f.Key, f.Value)
	}
	n.log.InfoContext(ctx, "alert", attrs...)
	return nil
}

// Multi sends every alert to all notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
