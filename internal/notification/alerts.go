package notification

import (
	"context"
	"strconv"
	"strings"
	"time"

	"signalbot/internal/model"
)

// SignalAlerts is a model.SignalSink that turns each signal into an Alert.
type SignalAlerts struct {
	notifier  Notifier
	precision func(pair string) int
}

// NewSignalAlerts wraps notifier. precision gives the number of decimals
// prices are shown with for a pair; nil means 4.
func NewSignalAlerts(notifier Notifier, precision func(pair string) int) *SignalAlerts {
	if precision == nil {
		precision = func(string) int { return 4 }
	}
	return &SignalAlerts{notifier: notifier, precision: precision}
}

// Name implements model.SignalSink.
func (s *SignalAlerts) Name() string { return "alerts" }

// WriteSignal implements model.SignalSink.
func (s *SignalAlerts) WriteSignal(ctx context.Context, sig model.Signal) error {
	return s.notifier.Send(ctx, s.Format(sig))
}

// Format renders sig with its pair's price precision.
func (s *SignalAlerts) Format(sig model.Signal) Alert {
	prec := s.precision(sig.Pair)
	price := func(v float64) string { return "$" + strconv.FormatFloat(v, 'f', prec, 64) }
	action := strings.ToUpper(sig.Action.String())

	return Alert{
		Level:   AlertInfo,
		Title:   action + " " + sig.Pair,
		Pair:    sig.Pair,
		Message: sig.Reason,
		Fields: []Field{
			{Key: "Time", Value: sig.Time.UTC().Format(time.RFC3339)},
			{Key: "Pair", Value: sig.Pair},
			{Key: "Action", Value: action},
			{Key: "Price", Value: price(sig.Price)},
			{Key: "TP1", Value: price(sig.TP1Price)},
			{Key: "TP2", Value: price(sig.TP2Price)},
			{Key: "Stop-Loss", Value: price(sig.StopLossPrice)},
		},
	}
}
