package indicator

// MACD returns the MACD line (fast EMA minus slow EMA of closes) and its
// signal line (EMA of the MACD line). Both series are fully defined.
func MACD(closes []float64, fast, slow, signal int) (line, sig []float64) {
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)
	line = make([]float64, len(closes))
	for i := range closes {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	return line, EMA(line, signal)
}
