package indicator

// RSI returns the Relative Strength Index over closes.
//
// Gains and losses are the positive and negated-negative close-to-close
// deltas; the first bar contributes zero to both. Each is averaged with a
// simple rolling mean of period values. A zero average loss is replaced by
// Epsilon, so a market with no down moves saturates toward 100 and a flat
// market (zero gain and zero loss) reads 0.
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i] = d
		} else if d < 0 {
			losses[i] = -d
		}
	}

	avgGain := RollingMean(gains, period)
	avgLoss := RollingMean(losses, period)

	out := nanSeries(n)
	for i := range out {
		if i < period-1 {
			continue
		}
		rs := avgGain[i] / nonZero(avgLoss[i])
		out[i] = 100 - 100/(1+rs)
	}
	return out
}
