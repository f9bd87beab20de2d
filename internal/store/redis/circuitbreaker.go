package redis

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = 0 // writes pass through
	StateOpen     State = 1 // writes rejected until the cool-down elapses
	StateHalfOpen State = 2 // one probe write allowed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = errors.New("redis: circuit breaker is open")

// CircuitBreaker shields the signal loop from a Redis outage. After
// maxFailures consecutive failures it opens and rejects calls for
// resetTimeout, then lets a single probe through. A successful probe
// closes it; a failed one reopens it. Concurrent calls while the probe is
// in flight are rejected.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	openedAt     time.Time
	probing      bool
	now          func() time.Time

	// OnStateChange is called on every transition, under the breaker lock.
	OnStateChange func(from, to State)
}

// NewCircuitBreaker creates a closed breaker. Non-positive arguments
// default to 5 failures and a 10s cool-down.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 10 * time.Second
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
		now:          time.Now,
	}
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.probing = true
	case StateHalfOpen:
		if cb.probing {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	wasProbe := cb.state == StateHalfOpen
	cb.probing = false

	if err != nil {
		cb.failures++
		if wasProbe || cb.failures >= cb.maxFailures {
			cb.openedAt = cb.now()
			cb.transition(StateOpen)
		}
		return err
	}

	if wasProbe {
		cb.transition(StateClosed)
	}
	cb.failures = 0
	return nil
}

// CurrentState returns the breaker state.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.OnStateChange != nil {
		cb.OnStateChange(from, to)
	}
}
