package collector

import (
	"sort"
	"time"

	"StockPulse/internal/calculator"
	"StockPulse/internal/format"
	"StockPulse/internal/model"
)

// Defaults substituted when a source omits a field.
const (
	defaultVolume    = 1_000_000
	defaultAvgVolume = 5_000_000
	// Market cap estimate multiplier applied to the current price.
	defaultMarketCapShares = 1e9
)

// normalizeBars orders bars oldest first, keeps the last bar per calendar
// day and drops bars without a positive close.
func normalizeBars(bars []model.OHLCV) []model.OHLCV {
	valid := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if b.Close > 0 {
			valid = append(valid, b)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Date.Before(valid[j].Date) })

	out := valid[:0]
	for _, b := range valid {
		if n := len(out); n > 0 && sameDay(out[n-1].Date, b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// estimatedHistory builds a flat year of daily bars around price for
// sources that only report a quote.
func estimatedHistory(price float64, end time.Time) []model.OHLCV {
	end = end.UTC().Truncate(24 * time.Hour)
	bars := make([]model.OHLCV, calculator.TradingDaysPerYear)
	for i := range bars {
		bars[i] = model.OHLCV{
			Date:   end.AddDate(0, 0, i-len(bars)+1),
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: defaultVolume,
		}
	}
	return bars
}

// historyRange returns the 52-week bounds of a history, falling back to price.
func historyRange(bars []model.OHLCV, price float64) (high, low float64) {
	high, low, err := calculator.Calculate52WeekRange(bars)
	if err != nil {
		return price, price
	}
	return high, low
}

// snapshotFromHistory derives quote figures from a full daily history.
func snapshotFromHistory(symbol string, bars []model.OHLCV, current float64) *model.Snapshot {
	last := bars[len(bars)-1]
	if current <= 0 {
		current = last.Close
	}
	previous := current
	if len(bars) > 1 {
		previous = bars[len(bars)-2].Close
	}
	high, low := historyRange(bars, current)
	return &model.Snapshot{
		Symbol:        symbol,
		CurrentPrice:  current,
		PreviousClose: previous,
		High52w:       high,
		Low52w:        low,
		Volume:        last.Volume,
		AvgVolume:     calculator.AverageVolume(bars),
		MarketCap:     model.NotAvailable,
		PriceHistory:  bars,
	}
}

// finalize fills derived fields, rounds prices to cents and computes indicators.
func finalize(s *model.Snapshot) *model.Snapshot {
	s.DisplayName = DisplayName(s.Symbol)
	s.PriceChange = s.CurrentPrice - s.PreviousClose
	if s.PreviousClose != 0 {
		s.PriceChangePct = s.PriceChange / s.PreviousClose * 100
	}
	if s.MarketCap == "" {
		s.MarketCap = model.NotAvailable
	}
	s.CurrentPrice = calculator.Round2(s.CurrentPrice)
	s.PreviousClose = calculator.Round2(s.PreviousClose)
	s.PriceChange = calculator.Round2(s.PriceChange)
	s.PriceChangePct = calculator.Round2(s.PriceChangePct)
	s.High52w = calculator.Round2(s.High52w)
	s.Low52w = calculator.Round2(s.Low52w)
	s.TechnicalAnalysis = calculator.Compute(s.PriceHistory)
	return s
}

// marketCapOr formats a reported capitalization, or an estimate when absent.
func marketCapOr(v flexFloat, estimate float64) string {
	if v.positive() {
		return format.MarketCap(v.Value)
	}
	return format.MarketCap(estimate)
}
