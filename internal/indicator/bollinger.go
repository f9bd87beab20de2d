package indicator

// Bollinger returns the upper and lower bands: rolling mean of closes plus
// and minus k sample standard deviations over period values.
func Bollinger(closes []float64, period int, k float64) (upper, lower []float64) {
	mean := RollingMean(closes, period)
	std := RollingStd(closes, period)
	upper = make([]float64, len(closes))
	lower = make([]float64, len(closes))
	for i := range closes {
		upper[i] = mean[i] + k*std[i]
		lower[i] = mean[i] - k*std[i]
	}
	return upper, lower
}
