package redis

import (
	"errors"
	"testing"
	"time"
)

var errFail = errors.New("fail")

// fakeClock lets tests step past the cool-down without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int) (*CircuitBreaker, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(maxFailures, 10*time.Second)
	cb.now = clk.Now
	return cb, clk
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb, _ := newTestBreaker(3)
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb, _ := newTestBreaker(3)
	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errFail }); err != errFail {
			t.Fatalf("expected errFail, got %v", err)
		}
	}
	if cb.CurrentState() != StateOpen {
		t.Errorf("expected Open after 3 failures, got %v", cb.CurrentState())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("expected rejection without calling fn, got err=%v called=%v", err, called)
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clk := newTestBreaker(2)
	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return errFail })

	clk.Advance(9 * time.Second)
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected rejection inside cool-down, got %v", err)
	}

	clk.Advance(2 * time.Second)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected probe to pass, got %v", err)
	}
	if cb.CurrentState() != StateClosed || cb.Failures() != 0 {
		t.Errorf("expected Closed with 0 failures, got %v/%d", cb.CurrentState(), cb.Failures())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clk := newTestBreaker(2)
	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return errFail })

	clk.Advance(11 * time.Second)
	cb.Execute(func() error { return errFail })
	if cb.CurrentState() != StateOpen {
		t.Fatalf("expected Open after failed probe, got %v", cb.CurrentState())
	}

	// The cool-down restarts from the failed probe.
	clk.Advance(5 * time.Second)
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected rejection, got %v", err)
	}
}

func TestCircuitBreaker_SingleProbe(t *testing.T) {
	cb, clk := newTestBreaker(1)
	cb.Execute(func() error { return errFail })
	clk.Advance(11 * time.Second)

	var inner error
	cb.Execute(func() error {
		inner = cb.Execute(func() error { return nil })
		return nil
	})
	if !errors.Is(inner, ErrCircuitOpen) {
		t.Errorf("second call during probe: expected ErrCircuitOpen, got %v", inner)
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(3)
	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return nil })
	cb.Execute(func() error { return errFail })
	cb.Execute(func() error { return errFail })

	if cb.CurrentState() != StateClosed {
		t.Errorf("expected Closed (counter should have reset), got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	cb, clk := newTestBreaker(1)
	var transitions []State
	cb.OnStateChange = func(from, to State) { transitions = append(transitions, to) }

	cb.Execute(func() error { return errFail })
	clk.Advance(11 * time.Second)
	cb.Execute(func() error { return nil })

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %v, got %v", i, want[i], transitions[i])
		}
	}
}
