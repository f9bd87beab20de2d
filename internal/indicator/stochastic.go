package indicator

// Stochastic returns the smoothed %K and %D lines.
//
//	%K raw = 100 * (close - lowest low) / (highest high - lowest low)
//	%K     = smoothK-period mean of %K raw
//	%D     = smoothD-period mean of %K
//
// A zero high-low range is replaced by Epsilon.
func Stochastic(high, low, close []float64, period, smoothK, smoothD int) (k, d []float64) {
	lows := RollingMin(low, period)
	highs := RollingMax(high, period)

	raw := nanSeries(len(close))
	for i := range close {
		if i < period-1 {
			continue
		}
		raw[i] = 100 * (close[i] - lows[i]) / nonZero(highs[i]-lows[i])
	}

	k = RollingMean(raw, smoothK)
	d = RollingMean(k, smoothD)
	return k, d
}
