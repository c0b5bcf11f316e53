package calculator

import (
	"errors"
)

// ErrInsufficientHistory is returned when a series is shorter than an indicator's window.
var ErrInsufficientHistory = errors.New("insufficient history")

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, ErrInsufficientHistory
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateEMA returns the exponential moving average at the last price.
// Weights decay as (1-alpha)^i over the whole series with alpha = 2/(span+1),
// normalized by the sum of weights, so a short series still yields a value.
func CalculateEMA(prices []float64, span int) (float64, error) {
	if span <= 0 {
		return 0, errors.New("span must be positive")
	}
	if len(prices) == 0 {
		return 0, ErrInsufficientHistory
	}
	decay := 1 - 2.0/float64(span+1)
	var num, den float64
	for _, p := range prices {
		num = p + decay*num
		den = 1 + decay*den
	}
	return num / den, nil
}
