// Package pipeline drives the signal core: it owns one context per trading
// pair, feeds closed candles through the window, staleness monitor and
// strategy, and fans emitted signals out to sinks.
package pipeline

import (
	"time"

	"signalbot/internal/indicator"
	"signalbot/internal/model"
	"signalbot/internal/staleness"
	"signalbot/internal/strategy"
	"signalbot/internal/window"
)

// PairContext is the mutable per-pair state. Exactly one goroutine (the
// processor loop) touches a given context; readers get a PairView instead.
type PairContext struct {
	Pair   string
	Window *window.Window
	State  strategy.TradeState

	// LastDebugAt is the open time of the last bar whose indicator row was
	// dumped at debug level, so each bar is printed at most once.
	LastDebugAt time.Time

	snapshot    indicator.Snapshot
	hasSnapshot bool
	outcome     staleness.Outcome
	delay       time.Duration
	lastSignal  *model.Signal
	updatedAt   time.Time
}

// NewPairContext returns an empty context whose window holds capacity candles.
func NewPairContext(pair string, capacity int) *PairContext {
	return &PairContext{
		Pair:   pair,
		Window: window.New(pair, capacity),
	}
}

// View copies the context into an immutable PairView.
func (pc *PairContext) View() PairView {
	v := PairView{
		Pair:        pc.Pair,
		State:       pc.State,
		WindowLen:   pc.Window.Len(),
		LastOutcome: pc.outcome.String(),
		DelaySec:    pc.delay.Seconds(),
		UpdatedAt:   pc.updatedAt,
	}
	if pc.hasSnapshot {
		snap := pc.snapshot
		v.Snapshot = &snap
	}
	if pc.lastSignal != nil {
		sig := *pc.lastSignal
		v.LastSignal = &sig
	}
	return v
}
