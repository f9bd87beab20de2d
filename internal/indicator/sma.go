package indicator

import "math"

// RollingMean returns the simple moving average over period values.
// The first period-1 elements are NaN. Each window is summed directly so
// no running-sum error accumulates across the series.
//
// Deviations are summed relative to the first value of the window, so a
// constant window yields that value exactly.
func RollingMean(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		win := values[i-period+1 : i+1]
		base := win[0]
		dev := 0.0
		for _, v := range win {
			dev += v - base
		}
		out[i] = base + dev/float64(period)
	}
	return out
}

// RollingStd returns the sample standard deviation (n-1 denominator) over
// period values. Undefined heads and period < 2 yield NaN.
func RollingStd(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period < 2 {
		return out
	}
	means := RollingMean(values, period)
	for i := period - 1; i < len(values); i++ {
		ss := 0.0
		for _, v := range values[i-period+1 : i+1] {
			d := v - means[i]
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(period-1))
	}
	return out
}

// RollingMin returns the minimum over period values.
func RollingMin(values []float64, period int) []float64 {
	return rollingExtreme(values, period, math.Min)
}

// RollingMax returns the maximum over period values.
func RollingMax(values []float64, period int) []float64 {
	return rollingExtreme(values, period, math.Max)
}

func rollingExtreme(values []float64, period int, pick func(a, b float64) float64) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		m := values[i-period+1]
		for _, v := range values[i-period+2 : i+1] {
			m = pick(m, v)
		}
		out[i] = m
	}
	return out
}
