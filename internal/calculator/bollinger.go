package calculator

import (
	"errors"
	"math"
)

// CalculateBollinger returns SMA(period) ± k sample standard deviations of
// the trailing window.
func CalculateBollinger(closes []float64, period int, k float64) (upper, lower float64, err error) {
	if period <= 1 {
		return 0, 0, errors.New("period must be greater than one")
	}
	mid, err := CalculateSMA(closes, period)
	if err != nil {
		return 0, 0, err
	}
	var sumSq float64
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - mid
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(period-1))
	return mid + k*std, mid - k*std, nil
}
