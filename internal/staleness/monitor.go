// Package staleness classifies how far behind the newest candle is.
//
// The monitor only classifies. Refilling the window and tearing down the
// transport are done by the caller.
package staleness

import "time"

// Default thresholds. A delay strictly greater than the threshold trips it.
const (
	DefaultResyncAfter    = 600 * time.Second
	DefaultReconnectAfter = 1200 * time.Second
)

// Outcome is the advisory result of a staleness check. Outcomes are ordered:
// ForceReconnect implies Resync.
type Outcome int

const (
	OK Outcome = iota
	Resync
	ForceReconnect
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Resync:
		return "resync"
	case ForceReconnect:
		return "force_reconnect"
	default:
		return "unknown"
	}
}

// NeedsResync reports whether the window must be refilled from history.
func (o Outcome) NeedsResync() bool { return o >= Resync }

// NeedsReconnect reports whether the transport session must be re-established.
func (o Outcome) NeedsReconnect() bool { return o >= ForceReconnect }

// Monitor compares candle open times against the wall clock.
type Monitor struct {
	ResyncAfter    time.Duration
	ReconnectAfter time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// OnOutcome is called for every non-OK classification (optional).
	OnOutcome func(o Outcome, delay time.Duration)
}

// New creates a monitor with the default thresholds.
func New() *Monitor {
	return &Monitor{
		ResyncAfter:    DefaultResyncAfter,
		ReconnectAfter: DefaultReconnectAfter,
		Now:            time.Now,
	}
}

// Check classifies a candle by the delay between its open time and now.
func (m *Monitor) Check(openTime time.Time) (Outcome, time.Duration) {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	delay := now().Sub(openTime)

	var o Outcome
	switch {
	case delay > m.ReconnectAfter:
		o = ForceReconnect
	case delay > m.ResyncAfter:
		o = Resync
	default:
		o = OK
	}
	if o != OK && m.OnOutcome != nil {
		m.OnOutcome(o, delay)
	}
	return o, delay
}
