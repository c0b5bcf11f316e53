package collector

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"StockPulse/internal/model"
)

// DefaultRobinhoodBaseURL is the public brokerage API root.
const DefaultRobinhoodBaseURL = "https://api.robinhood.com"

// RobinhoodFetcher is the richest source: a live quote with fundamentals
// plus a year of daily historicals.
type RobinhoodFetcher struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
	now       func() time.Time
}

// NewRobinhoodFetcher creates a fetcher with a bounded timeout and optional proxy.
func NewRobinhoodFetcher(baseURL, userAgent string, timeout time.Duration, proxyURL string) *RobinhoodFetcher {
	if baseURL == "" {
		baseURL = DefaultRobinhoodBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &RobinhoodFetcher{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		Client:    newHTTPClient(timeout, proxyURL),
		now:       time.Now,
	}
}

func (f *RobinhoodFetcher) Name() string { return "robinhood" }

type rhQuote struct {
	LastTradePrice flexFloat `json:"last_trade_price"`
	PreviousClose  flexFloat `json:"previous_close"`
	High52Weeks    flexFloat `json:"high_52_weeks"`
	Low52Weeks     flexFloat `json:"low_52_weeks"`
	Volume         flexFloat `json:"volume"`
	AverageVolume  flexFloat `json:"average_volume"`
	PERatio        flexFloat `json:"pe_ratio"`
	MarketCap      flexFloat `json:"market_cap"`
}

type rhHistorical struct {
	BeginsAt   string    `json:"begins_at"`
	OpenPrice  flexFloat `json:"open_price"`
	HighPrice  flexFloat `json:"high_price"`
	LowPrice   flexFloat `json:"low_price"`
	ClosePrice flexFloat `json:"close_price"`
	Volume     flexFloat `json:"volume"`
}

func (f *RobinhoodFetcher) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", f.UserAgent)
	h.Set("Accept", "application/json")
	return h
}

func (f *RobinhoodFetcher) FetchSnapshot(ctx context.Context, symbol string) (*model.Snapshot, error) {
	var quotes struct {
		Results []rhQuote `json:"results"`
	}
	endpoint := fmt.Sprintf("%s/quotes/?symbols=%s", f.BaseURL, url.QueryEscape(symbol))
	if err := getJSON(ctx, f.Client, endpoint, f.header(), &quotes); err != nil {
		return nil, fmt.Errorf("robinhood quote: %w", err)
	}
	if len(quotes.Results) == 0 {
		return nil, fmt.Errorf("robinhood quote: %w: no results for %q", ErrMalformedResponse, symbol)
	}
	q := quotes.Results[0]
	if !q.LastTradePrice.positive() {
		return nil, fmt.Errorf("robinhood quote: %w: missing last_trade_price", ErrMalformedResponse)
	}
	current := q.LastTradePrice.Value

	history, err := f.fetchHistory(ctx, symbol)
	estimated := false
	if err != nil {
		log.Printf("[WARN] robinhood history for %s unavailable, estimating from quote: %v", symbol, err)
		history = estimatedHistory(current, f.now())
		estimated = true
	}

	high, low := historyRange(history, current)
	snap := &model.Snapshot{
		Symbol:        symbol,
		CurrentPrice:  current,
		PreviousClose: q.PreviousClose.Or(current),
		High52w:       q.High52Weeks.Or(high),
		Low52w:        q.Low52Weeks.Or(low),
		Volume:        int64(q.Volume.Or(defaultVolume)),
		AvgVolume:     int64(q.AverageVolume.Or(defaultAvgVolume)),
		MarketCap:     marketCapOr(q.MarketCap, current*defaultMarketCapShares),
		PriceHistory:  history,
		Provenance:    model.Provenance{EstimatedHistory: estimated},
	}
	if q.PERatio.Valid {
		snap.PERatio = model.NewPERatio(q.PERatio.Value)
	}
	return finalize(snap), nil
}

// fetchHistory resolves the instrument id and loads one year of daily bars.
func (f *RobinhoodFetcher) fetchHistory(ctx context.Context, symbol string) ([]model.OHLCV, error) {
	var instruments struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	endpoint := fmt.Sprintf("%s/instruments/?symbol=%s", f.BaseURL, url.QueryEscape(symbol))
	if err := getJSON(ctx, f.Client, endpoint, f.header(), &instruments); err != nil {
		return nil, fmt.Errorf("instruments: %w", err)
	}
	if len(instruments.Results) == 0 || instruments.Results[0].ID == "" {
		return nil, fmt.Errorf("instruments: %w: unknown symbol %q", ErrMalformedResponse, symbol)
	}

	var hist struct {
		Historicals []rhHistorical `json:"historicals"`
	}
	endpoint = fmt.Sprintf("%s/quotes/historicals/%s/?interval=day&span=year&bounds=regular",
		f.BaseURL, url.PathEscape(instruments.Results[0].ID))
	if err := getJSON(ctx, f.Client, endpoint, f.header(), &hist); err != nil {
		return nil, fmt.Errorf("historicals: %w", err)
	}

	bars := make([]model.OHLCV, 0, len(hist.Historicals))
	for _, h := range hist.Historicals {
		if len(h.BeginsAt) < 10 {
			return nil, fmt.Errorf("historicals: %w: bad begins_at %q", ErrMalformedResponse, h.BeginsAt)
		}
		date, err := time.Parse("2006-01-02", h.BeginsAt[:10])
		if err != nil {
			return nil, fmt.Errorf("historicals: %w: %w", ErrMalformedResponse, err)
		}
		last := h.ClosePrice.Value
		bars = append(bars, model.OHLCV{
			Date:   date,
			Open:   positiveOr(h.OpenPrice, last),
			High:   positiveOr(h.HighPrice, last),
			Low:    positiveOr(h.LowPrice, last),
			Close:  last,
			Volume: int64(h.Volume.Or(0)),
		})
	}
	bars = normalizeBars(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("historicals: %w: empty history", ErrMalformedResponse)
	}
	return bars, nil
}

