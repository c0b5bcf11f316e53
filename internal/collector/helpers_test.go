package collector

import (
	"encoding/json"
	"time"

	"StockPulse/internal/model"
)

func jsonUnmarshal(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}

func barsAt(dates []time.Time, closes []float64) []model.OHLCV {
	bars := make([]model.OHLCV, len(dates))
	for i := range dates {
		c := closes[i]
		bars[i] = model.OHLCV{Date: dates[i], Open: c, High: c, Low: c, Close: c, Volume: 10}
	}
	return bars
}
