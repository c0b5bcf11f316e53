package calculator

import (
	"errors"
	"math"
)

// NeutralRSI is reported whenever RSI is undefined.
const NeutralRSI = 50.0

// CalculateRSI computes RSI from the plain trailing mean of the last `period`
// close-to-close gains and losses. Returns NeutralRSI with
// ErrInsufficientHistory when fewer than period+1 closes exist, and
// NeutralRSI without error when the average loss is zero.
func CalculateRSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(closes) < period+1 {
		return NeutralRSI, ErrInsufficientHistory
	}

	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return NeutralRSI, nil
	}
	rsi := 100.0 - 100.0/(1.0+avgGain/avgLoss)
	if math.IsNaN(rsi) || math.IsInf(rsi, 0) {
		return NeutralRSI, nil
	}
	return rsi, nil
}
