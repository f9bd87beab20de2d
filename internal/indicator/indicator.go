// Package indicator computes technical indicators over a candle window.
//
// Every function here is pure and recomputes its series from scratch over the
// slice it is given. Windows are small (100 bars), so there is no streaming
// state to checkpoint or restore. Series values that are not yet defined
// (the warm-up head of a rolling window) are NaN.
package indicator

import (
	"errors"
	"math"
)

// Epsilon is substituted for a zero denominator (RSI loss, Stochastic range).
// It is float64 machine epsilon, so affected values saturate instead of
// becoming undefined.
const Epsilon = 2.220446049250313e-16

// ErrInsufficientData is returned when the window is shorter than MinCandles.
var ErrInsufficientData = errors.New("insufficient data")

// nonZero returns v, or Epsilon when v is exactly zero.
func nonZero(v float64) float64 {
	if v == 0 {
		return Epsilon
	}
	return v
}

// last returns the final element of s, or NaN for an empty series.
func last(s []float64) float64 {
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
