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

// VsTraderFetcher implements Fetcher using the vstrader REST API.
type VsTraderFetcher struct {
	BaseURL string
	APIKey  string
	Days    int
	Client  *http.Client
}

// NewVsTraderFetcher creates a new fetcher with optional proxy support.
func NewVsTraderFetcher(baseURL, apiKey string, timeout time.Duration, proxyURL string) *VsTraderFetcher {
	return &VsTraderFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Days:    300,
		Client:  newHTTPClient(timeout, proxyURL),
	}
}

func (f *VsTraderFetcher) Name() string { return "vstrader" }

// vsBar is the expected JSON shape from the vstrader API.
type vsBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *VsTraderFetcher) header() http.Header {
	h := http.Header{}
	if f.APIKey != "" {
		h.Set("Authorization", "Bearer "+f.APIKey)
	}
	return h
}

func (f *VsTraderFetcher) FetchSnapshot(ctx context.Context, symbol string) (*model.Snapshot, error) {
	bars, err := f.fetchDailyBars(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("vstrader bars: %w", err)
	}
	current, err := f.fetchCurrentPrice(ctx, symbol)
	if err != nil {
		log.Printf("[WARN] vstrader quote for %s failed, using last close: %v", symbol, err)
		current = 0
	}
	return finalize(snapshotFromHistory(symbol, bars, current)), nil
}

func (f *VsTraderFetcher) fetchDailyBars(ctx context.Context, symbol string) ([]model.OHLCV, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&limit=%d", f.BaseURL, url.QueryEscape(symbol), f.Days)
	var vsBars []vsBar
	if err := getJSON(ctx, f.Client, endpoint, f.header(), &vsBars); err != nil {
		return nil, err
	}
	bars := make([]model.OHLCV, len(vsBars))
	for i, vb := range vsBars {
		bars[i] = model.OHLCV{
			Date:   time.Unix(vb.Timestamp, 0).UTC(),
			Open:   vb.Open,
			High:   vb.High,
			Low:    vb.Low,
			Close:  vb.Close,
			Volume: int64(vb.Volume),
		}
	}
	bars = normalizeBars(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: empty history for %q", ErrMalformedResponse, symbol)
	}
	return bars, nil
}

func (f *VsTraderFetcher) fetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v1/quote?symbol=%s", f.BaseURL, url.QueryEscape(symbol))
	var result struct {
		Price flexFloat `json:"price"`
	}
	if err := getJSON(ctx, f.Client, endpoint, f.header(), &result); err != nil {
		return 0, err
	}
	if !result.Price.positive() {
		return 0, fmt.Errorf("%w: missing price", ErrMalformedResponse)
	}
	return result.Price.Value, nil
}
