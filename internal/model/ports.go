package model

import "context"

// ── Collaborator Ports ──
// The signal core never talks to the network or disk directly. These
// interfaces are satisfied by the Binance client and the store packages.

// HistoryFetcher loads authoritative candle history for seeding and resync.
type HistoryFetcher interface {
	// FetchHistory returns up to count most recent closed candles for pair,
	// ordered by open time. An empty result with a nil error means no data.
	FetchHistory(ctx context.Context, pair, interval string, count int) ([]Candle, error)
}

// SignalSink receives every emitted signal (journal, CSV, Redis, alerts, websocket feed).
type SignalSink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// WriteSignal persists or forwards one signal.
	WriteSignal(ctx context.Context, sig Signal) error
}
