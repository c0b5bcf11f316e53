package collector

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"StockPulse/internal/model"
)

// YahooMetaFetcher is the last live resort: it reads only the chart
// metadata block and estimates everything else from the quoted price.
type YahooMetaFetcher struct {
	yahooClient
	now func() time.Time
}

// NewYahooMetaFetcher creates a fetcher for the simplified chart endpoint.
func NewYahooMetaFetcher(baseURL, userAgent string, timeout time.Duration, proxyURL string) *YahooMetaFetcher {
	return &YahooMetaFetcher{
		yahooClient: newYahooClient(baseURL, userAgent, timeout, proxyURL),
		now:         time.Now,
	}
}

func (f *YahooMetaFetcher) Name() string { return "yahoo-meta" }

func (f *YahooMetaFetcher) FetchSnapshot(ctx context.Context, symbol string) (*model.Snapshot, error) {
	result, err := f.fetchChart(ctx, symbol, url.Values{"interval": {"1d"}})
	if err != nil {
		return nil, fmt.Errorf("yahoo meta: %w", err)
	}
	meta := result.Meta
	if !meta.RegularMarketPrice.positive() {
		return nil, fmt.Errorf("yahoo meta: %w: missing regularMarketPrice", ErrMalformedResponse)
	}
	current := meta.RegularMarketPrice.Value

	previous := meta.PreviousClose.Or(meta.ChartPreviousClose.Or(current))
	snap := &model.Snapshot{
		Symbol:        symbol,
		CurrentPrice:  current,
		PreviousClose: previous,
		High52w:       meta.FiftyTwoWeekHigh.Or(current * 1.2),
		Low52w:        meta.FiftyTwoWeekLow.Or(current * 0.8),
		Volume:        defaultVolume,
		AvgVolume:     int64(meta.RegularMarketVolume.Or(defaultAvgVolume)),
		MarketCap:     marketCapOr(meta.MarketCap, current*defaultMarketCapShares),
		PriceHistory:  estimatedHistory(current, f.now()),
		Provenance:    model.Provenance{EstimatedHistory: true},
	}
	return finalize(snap), nil
}
