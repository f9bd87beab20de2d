package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedCandle is returned for candles carrying a non-finite or
// non-positive price or volume.
var ErrMalformedCandle = errors.New("malformed candle")

// Candle is a closed OHLCV bar for one trading pair.
type Candle struct {
	Pair     string    `json:"pair"`
	OpenTime time.Time `json:"open_time"` // bar open time (UTC)
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Validate reports ErrMalformedCandle if any price or volume field is NaN,
// infinite, zero or negative.
func (c *Candle) Validate() error {
	fields := [...]struct {
		name string
		v    float64
	}{
		{"open", c.Open},
		{"high", c.High},
		{"low", c.Low},
		{"close", c.Close},
		{"volume", c.Volume},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v <= 0 {
			return fmt.Errorf("%w: %s %s=%v", ErrMalformedCandle, c.Pair, f.name, f.v)
		}
	}
	return nil
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
