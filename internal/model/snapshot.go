package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// NotAvailable is rendered for values an upstream source did not provide.
const NotAvailable = "N/A"

// PERatio is either a number or "not available".
type PERatio struct {
	Value float64
	Valid bool
}

// NewPERatio returns an available P/E ratio.
func NewPERatio(v float64) PERatio { return PERatio{Value: v, Valid: true} }

func (p PERatio) String() string {
	if !p.Valid {
		return NotAvailable
	}
	return strconv.FormatFloat(p.Value, 'f', 2, 64)
}

func (p PERatio) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(p.Value)
}

func (p *PERatio) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*p = NewPERatio(v)
		return nil
	}
	*p = PERatio{}
	return nil
}

// Attempt records one provider call made while acquiring a snapshot.
type Attempt struct {
	Provider string `json:"provider"`
	Category string `json:"category"`
	Error    string `json:"error,omitempty"`
}

// Provenance tells consumers where a snapshot came from.
type Provenance struct {
	Source           string    `json:"source"`
	Synthetic        bool      `json:"is_synthetic"`
	EstimatedHistory bool      `json:"estimated_history"`
	Attempts         []Attempt `json:"attempts,omitempty"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// Snapshot is the normalized per-symbol record produced by acquisition.
// It is created fresh for every request and never updated in place.
type Snapshot struct {
	Symbol            string       `json:"symbol"`
	DisplayName       string       `json:"name"`
	CurrentPrice      float64      `json:"current_price"`
	PreviousClose     float64      `json:"previous_close"`
	PriceChange       float64      `json:"price_change"`
	PriceChangePct    float64      `json:"price_change_pct"`
	High52w           float64      `json:"high_52w"`
	Low52w            float64      `json:"low_52w"`
	Volume            int64        `json:"volume"`
	AvgVolume         int64        `json:"avg_volume"`
	PERatio           PERatio      `json:"pe_ratio"`
	MarketCap         string       `json:"market_cap"`
	PriceHistory      []OHLCV      `json:"price_history"`
	TechnicalAnalysis IndicatorSet `json:"technical_analysis"`
	IsSynthetic       bool         `json:"is_synthetic"`
	Provenance        Provenance   `json:"provenance"`
}
