package indicator

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"signalbot/internal/model"
)

var base = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func series(closes []float64, spread float64) []model.Candle {
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = model.Candle{
			Pair:     "BTCUSDT",
			OpenTime: base.Add(time.Duration(i) * time.Minute),
			Open:     c,
			High:     c + spread,
			Low:      c - spread,
			Close:    c,
			Volume:   1,
		}
	}
	return out
}

func linear(n int, from, to float64) []float64 {
	out := make([]float64, n)
	step := (to - from) / float64(n-1)
	for i := range out {
		out[i] = from + step*float64(i)
	}
	return out
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func TestCompute_InsufficientData(t *testing.T) {
	_, err := Compute(series(constant(49, 100), 0))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := Compute(nil); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for empty window, got %v", err)
	}
}

func TestCompute_AllFieldsFinite(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := MinCandles + rng.Intn(51)
		closes := make([]float64, n)
		price := 100.0
		for i := range closes {
			price *= 1 + (rng.Float64()-0.5)*0.02
			closes[i] = price
		}
		snap, err := Compute(series(closes, rng.Float64()*2))
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		fields := map[string]float64{
			"ema_50": snap.EMA50, "ema_50_slope": snap.EMA50Slope, "rsi": snap.RSI,
			"macd": snap.MACD, "macd_signal": snap.MACDSignal,
			"bb_upper": snap.BBUpper, "bb_lower": snap.BBLower,
			"stoch_k": snap.StochK, "stoch_d": snap.StochD,
		}
		for name, v := range fields {
			if !finite(v) {
				t.Fatalf("trial %d (n=%d): %s not finite: %v", trial, n, name, v)
			}
		}
		if snap.RSI < 0 || snap.RSI > 100 {
			t.Errorf("trial %d: RSI out of range: %v", trial, snap.RSI)
		}
	}
}

// flatPrices mixes values that divide exactly with ones that do not.
var flatPrices = []float64{100, 0.1, 0.3, 1.1, 123.456, 27123.17, 0.6531, 3.3333}

func TestCompute_FlatMarket(t *testing.T) {
	for _, p := range flatPrices {
		snap, err := Compute(series(constant(50, p), 0))
		if err != nil {
			t.Fatal(err)
		}
		if snap.MACD != 0 || snap.MACDSignal != 0 {
			t.Errorf("price %v: expected zero MACD, got %v / %v", p, snap.MACD, snap.MACDSignal)
		}
		if snap.EMA50Slope != 0 || snap.Bullish() {
			t.Errorf("price %v: expected flat EMA slope, got %v", p, snap.EMA50Slope)
		}
		if snap.BBUpper != p || snap.BBLower != p {
			t.Errorf("price %v: expected collapsed bands, got %v / %v", p, snap.BBUpper, snap.BBLower)
		}
		if snap.StochK != 0 || snap.StochD != 0 {
			t.Errorf("price %v: expected epsilon-guarded stochastic of 0, got %v / %v", p, snap.StochK, snap.StochD)
		}
		if snap.RSI != 0 {
			t.Errorf("price %v: expected RSI 0 for zero gain and zero loss, got %v", p, snap.RSI)
		}
	}
}

func TestRollingMean_ConstantWindowExact(t *testing.T) {
	for _, p := range flatPrices {
		m := RollingMean(constant(25, p), 20)
		s := RollingStd(constant(25, p), 20)
		for i := 19; i < 25; i++ {
			if m[i] != p || s[i] != 0 {
				t.Fatalf("price %v at %d: mean=%v std=%v", p, i, m[i], s[i])
			}
		}
	}
}

func TestCompute_Uptrend(t *testing.T) {
	candles := series(linear(50, 100, 150), 10)
	snap, err := Compute(candles)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Close != candles[49].Close || !snap.OpenTime.Equal(candles[49].OpenTime) || snap.Pair != "BTCUSDT" {
		t.Errorf("snapshot not anchored on newest candle: %+v", snap)
	}
	if snap.RSI < 99 {
		t.Errorf("expected saturated RSI in a loss-free uptrend, got %v", snap.RSI)
	}
	if snap.MACD <= snap.MACDSignal {
		t.Errorf("expected MACD above signal: %v <= %v", snap.MACD, snap.MACDSignal)
	}
	if !snap.Bullish() {
		t.Errorf("expected bullish EMA slope, got %v", snap.EMA50Slope)
	}
	if snap.Close >= snap.BBUpper {
		t.Errorf("expected close inside the upper band for a linear ramp: close=%v upper=%v", snap.Close, snap.BBUpper)
	}
	// Range per bar is ±10 around close, 14-bar travel ≈ 13.27 → %K ≈ 69.9
	assertClose(t, "stoch_k", snap.StochK, 100*(13*50.0/49+10)/(13*50.0/49+20), 1e-6)
}

func TestCompute_UsesOnlySuppliedWindow(t *testing.T) {
	closes := linear(100, 100, 200)
	full, _ := Compute(series(closes, 1))
	tail := series(closes, 1)[50:]
	part, _ := Compute(tail)
	if full.EMA50 == part.EMA50 {
		t.Errorf("EMA seeded from different windows should differ")
	}
	assertClose(t, "bb_upper", part.BBUpper, full.BBUpper, 1e-9)
}
