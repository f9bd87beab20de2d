package indicator

import (
	"fmt"
	"time"

	"signalbot/internal/model"
)

// Periods used by Compute.
const (
	MinCandles = 50

	EMAPeriod       = 50
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerK      = 2.0
	StochPeriod     = 14
	StochSmoothK    = 3
	StochSmoothD    = 3
)

// Snapshot holds the indicator values at the newest candle of a window.
type Snapshot struct {
	Pair       string    `json:"pair"`
	OpenTime   time.Time `json:"open_time"`
	Close      float64   `json:"close"`
	EMA50      float64   `json:"ema_50"`
	EMA50Slope float64   `json:"ema_50_slope"`
	RSI        float64   `json:"rsi"`
	MACD       float64   `json:"macd"`
	MACDSignal float64   `json:"macd_signal"`
	BBUpper    float64   `json:"bb_upper"`
	BBLower    float64   `json:"bb_lower"`
	StochK     float64   `json:"stoch_k"`
	StochD     float64   `json:"stoch_d"`
}

// Bullish reports whether the EMA50 rose over the last bar.
func (s Snapshot) Bullish() bool { return s.EMA50Slope > 0 }

// String renders the snapshot as a single debug row.
func (s Snapshot) String() string {
	return fmt.Sprintf("%s %s close=%.6g rsi=%.2f ema_50=%.6g macd=%.6g macd_signal=%.6g bb_upper=%.6g bb_lower=%.6g stoch_k=%.2f stoch_d=%.2f",
		s.Pair, s.OpenTime.Format(time.RFC3339), s.Close, s.RSI, s.EMA50, s.MACD, s.MACDSignal,
		s.BBUpper, s.BBLower, s.StochK, s.StochD)
}

// Compute derives a Snapshot from candles ordered oldest first. It returns
// ErrInsufficientData when fewer than MinCandles are supplied.
func Compute(candles []model.Candle) (Snapshot, error) {
	n := len(candles)
	if n < MinCandles {
		return Snapshot{}, fmt.Errorf("%w: have %d candles, need %d", ErrInsufficientData, n, MinCandles)
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	ema := EMA(closes, EMAPeriod)
	macd, macdSig := MACD(closes, MACDFast, MACDSlow, MACDSignal)
	upper, lower := Bollinger(closes, BollingerPeriod, BollingerK)
	k, d := Stochastic(highs, lows, closes, StochPeriod, StochSmoothK, StochSmoothD)

	newest := candles[n-1]
	return Snapshot{
		Pair:       newest.Pair,
		OpenTime:   newest.OpenTime,
		Close:      newest.Close,
		EMA50:      ema[n-1],
		EMA50Slope: ema[n-1] - ema[n-2],
		RSI:        last(RSI(closes, RSIPeriod)),
		MACD:       macd[n-1],
		MACDSignal: macdSig[n-1],
		BBUpper:    last(upper),
		BBLower:    last(lower),
		StochK:     last(k),
		StochD:     last(d),
	}, nil
}
