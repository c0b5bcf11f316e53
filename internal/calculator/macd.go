package calculator

import "math"

// CalculateMACD returns EMA(fast) - EMA(slow) at the last close, or 0 when
// either average is undefined.
func CalculateMACD(closes []float64, fast, slow int) float64 {
	emaFast, err := CalculateEMA(closes, fast)
	if err != nil {
		return 0
	}
	emaSlow, err := CalculateEMA(closes, slow)
	if err != nil {
		return 0
	}
	macd := emaFast - emaSlow
	if math.IsNaN(macd) || math.IsInf(macd, 0) {
		return 0
	}
	return macd
}
