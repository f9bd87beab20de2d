package indicator

// EMA returns the exponential moving average of values with smoothing
// factor k = 2/(period+1). The series is seeded with the first value
// (no SMA warm-up), so every element is defined.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || period <= 0 {
		return out
	}
	k := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		// Same as v*k + prev*(1-k), but exact when v == prev.
		prev := out[i-1]
		out[i] = prev + k*(values[i]-prev)
	}
	return out
}
