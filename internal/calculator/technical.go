package calculator

import (
	"errors"
	"fmt"
	"log"
	"math"

	"StockPulse/internal/model"
)

const (
	rsiPeriod       = 14
	macdFast        = 12
	macdSlow        = 26
	bollingerPeriod = 20
	bollingerK      = 2.0

	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// Compute derives the indicator set for a series ordered oldest to newest.
// It never fails: an unusable series yields model.DefaultIndicators().
// Moving averages and Bollinger bands shorter than their window are
// reported as 0.
func Compute(bars []model.OHLCV) model.IndicatorSet {
	set, err := compute(bars)
	if err != nil {
		log.Printf("[WARN] technical indicator calculation failed: %v", err)
		return model.DefaultIndicators()
	}
	return set
}

func compute(bars []model.OHLCV) (model.IndicatorSet, error) {
	if len(bars) == 0 {
		return model.IndicatorSet{}, errors.New("empty price series")
	}
	closes := model.Closes(bars)
	for i, c := range closes {
		if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
			return model.IndicatorSet{}, fmt.Errorf("bar %d: invalid close %v", i, c)
		}
	}

	sma20, ok20 := optional(CalculateSMA(closes, 20))
	sma50, ok50 := optional(CalculateSMA(closes, 50))
	sma200, _ := optional(CalculateSMA(closes, 200))

	rsi, err := CalculateRSI(closes, rsiPeriod)
	if err != nil && !errors.Is(err, ErrInsufficientHistory) {
		return model.IndicatorSet{}, fmt.Errorf("rsi: %w", err)
	}

	upper, lower, err := CalculateBollinger(closes, bollingerPeriod, bollingerK)
	bandsOK := err == nil
	if err != nil && !errors.Is(err, ErrInsufficientHistory) {
		return model.IndicatorSet{}, fmt.Errorf("bollinger: %w", err)
	}

	set := model.IndicatorSet{
		SMA20:          Round2(sma20),
		SMA50:          Round2(sma50),
		SMA200:         Round2(sma200),
		RSI:            Round2(rsi),
		MACD:           Round2(CalculateMACD(closes, macdFast, macdSlow)),
		BollingerUpper: Round2(upper),
		BollingerLower: Round2(lower),
	}
	set.Signals = signals(closes[len(closes)-1], set, ok20, ok50, bandsOK)
	return set, nil
}

// optional swallows ErrInsufficientHistory and reports availability.
func optional(v float64, err error) (float64, bool) {
	if err != nil {
		return 0, false
	}
	return v, true
}

// signals compares the last close against the rounded indicator values.
// An unavailable moving average counts as "below"; unavailable bands emit nothing.
func signals(price float64, set model.IndicatorSet, ok20, ok50, bandsOK bool) []string {
	out := make([]string, 0, 4)

	if ok20 && price > set.SMA20 {
		out = append(out, "Price above 20-day MA")
	} else {
		out = append(out, "Price below 20-day MA")
	}
	if ok50 && price > set.SMA50 {
		out = append(out, "Price above 50-day MA")
	} else {
		out = append(out, "Price below 50-day MA")
	}

	switch {
	case set.RSI > rsiOverbought:
		out = append(out, "RSI indicates overbought")
	case set.RSI < rsiOversold:
		out = append(out, "RSI indicates oversold")
	}

	if bandsOK {
		switch {
		case price > set.BollingerUpper:
			out = append(out, "Price above Bollinger upper band")
		case price < set.BollingerLower:
			out = append(out, "Price below Bollinger lower band")
		}
	}
	return out
}
