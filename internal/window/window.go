// Package window provides the per-pair rolling candle history that the
// indicator engine recomputes from on every update.
//
// A Window is not safe for concurrent use. Each pair's window is owned by the
// single goroutine that processes that pair.
package window

import (
	"fmt"
	"sort"

	"signalbot/internal/model"
)

const (
	// DefaultCapacity is the number of most recent candles retained.
	DefaultCapacity = 100

	// MinLength is the shortest window the indicator engine accepts.
	MinLength = 50
)

// Window is a bounded, open-time ordered candle buffer for one pair.
type Window struct {
	pair     string
	capacity int
	candles  []model.Candle
}

// New creates an empty window. capacity <= 0 selects DefaultCapacity.
func New(pair string, capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{
		pair:     pair,
		capacity: capacity,
		candles:  make([]model.Candle, 0, capacity+1),
	}
}

// Pair returns the pair this window belongs to.
func (w *Window) Pair() string { return w.pair }

// Cap returns the maximum number of retained candles.
func (w *Window) Cap() int { return w.capacity }

// Len returns the number of candles currently held.
func (w *Window) Len() int { return len(w.candles) }

// Append inserts c in open-time order. A candle whose open time matches an
// existing entry replaces it. The window is then trimmed to its capacity,
// dropping the oldest entries. Malformed candles, and candles of another
// pair, are rejected with model.ErrMalformedCandle and the window is left
// unchanged.
func (w *Window) Append(c model.Candle) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Pair != w.pair {
		return fmt.Errorf("%w: %s candle in %s window", model.ErrMalformedCandle, c.Pair, w.pair)
	}
	c.OpenTime = c.OpenTime.UTC()

	n := len(w.candles)
	// Fast path: live candles arrive in order.
	if n == 0 || c.OpenTime.After(w.candles[n-1].OpenTime) {
		w.candles = append(w.candles, c)
		w.trim()
		return nil
	}

	i := sort.Search(n, func(i int) bool {
		return !w.candles[i].OpenTime.Before(c.OpenTime)
	})
	if i < n && w.candles[i].OpenTime.Equal(c.OpenTime) {
		w.candles[i] = c
		return nil
	}

	w.candles = append(w.candles, model.Candle{})
	copy(w.candles[i+1:], w.candles[i:])
	w.candles[i] = c
	w.trim()
	return nil
}

// Reset discards the current contents and refills the window from history.
// Malformed entries in history are skipped; the number skipped is returned.
func (w *Window) Reset(history []model.Candle) (skipped int) {
	w.candles = w.candles[:0]
	for _, c := range history {
		if err := w.Append(c); err != nil {
			skipped++
		}
	}
	return skipped
}

// Candles returns a copy of the window contents, oldest first.
func (w *Window) Candles() []model.Candle {
	out := make([]model.Candle, len(w.candles))
	copy(out, w.candles)
	return out
}

// Latest returns the newest candle, or false if the window is empty.
func (w *Window) Latest() (model.Candle, bool) {
	if len(w.candles) == 0 {
		return model.Candle{}, false
	}
	return w.candles[len(w.candles)-1], true
}

// Ready reports whether the window holds at least MinLength candles.
func (w *Window) Ready() bool { return len(w.candles) >= MinLength }

func (w *Window) trim() {
	if over := len(w.candles) - w.capacity; over > 0 {
		copy(w.candles, w.candles[over:])
		w.candles = w.candles[:w.capacity]
	}
}
