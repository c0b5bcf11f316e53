package model

// IndicatorSet holds the technical indicators derived from a price series.
// Numeric fields are rounded to two decimals. Signals are ordered: moving
// average comparisons first, then RSI extremes, then Bollinger breaches.
type IndicatorSet struct {
	SMA20          float64  `json:"sma_20"`
	SMA50          float64  `json:"sma_50"`
	SMA200         float64  `json:"sma_200"`
	RSI            float64  `json:"rsi"`
	MACD           float64  `json:"macd"`
	BollingerUpper float64  `json:"bollinger_upper"`
	BollingerLower float64  `json:"bollinger_lower"`
	Signals        []string `json:"signals"`
}

// SignalCalculationFailed is the only signal of the default indicator set.
const SignalCalculationFailed = "Technical indicator calculation failed"

// DefaultIndicators is returned when indicators cannot be computed at all.
func DefaultIndicators() IndicatorSet {
	return IndicatorSet{
		RSI:     50,
		Signals: []string{SignalCalculationFailed},
	}
}
