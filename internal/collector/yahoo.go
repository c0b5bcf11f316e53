package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"StockPulse/internal/model"
)

// DefaultYahooBaseURL is the public Yahoo Finance query host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// yahooClient talks to the Yahoo Finance v8 chart API.
type yahooClient struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

func newYahooClient(baseURL, userAgent string, timeout time.Duration, proxyURL string) yahooClient {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return yahooClient{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		Client:    newHTTPClient(timeout, proxyURL),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (c yahooClient) yahooSymbol(symbol string) string {
	if mapped, ok := c.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

type yahooMeta struct {
	RegularMarketPrice  flexFloat `json:"regularMarketPrice"`
	PreviousClose       flexFloat `json:"previousClose"`
	ChartPreviousClose  flexFloat `json:"chartPreviousClose"`
	FiftyTwoWeekHigh    flexFloat `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow     flexFloat `json:"fiftyTwoWeekLow"`
	RegularMarketVolume flexFloat `json:"regularMarketVolume"`
	MarketCap           flexFloat `json:"marketCap"`
}

type yahooResult struct {
	Meta       yahooMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []flexFloat `json:"open"`
			High   []flexFloat `json:"high"`
			Low    []flexFloat `json:"low"`
			Close  []flexFloat `json:"close"`
			Volume []flexFloat `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []yahooResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c yahooClient) fetchChart(ctx context.Context, symbol string, query url.Values) (*yahooResult, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s", c.BaseURL, url.PathEscape(c.yahooSymbol(symbol)))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	header := http.Header{}
	header.Set("User-Agent", c.UserAgent)

	var chart yahooChart
	if err := getJSON(ctx, c.Client, u, header, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo api error: %s", ErrProviderUnavailable, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: yahoo: no result", ErrMalformedResponse)
	}
	return &chart.Chart.Result[0], nil
}

// bars converts the columnar quote arrays into OHLCV bars, skipping null bars (holidays etc.).
func (r *yahooResult) bars() []model.OHLCV {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	quote := r.Indicators.Quote[0]
	at := func(col []flexFloat, i int) flexFloat {
		if i < len(col) {
			return col[i]
		}
		return flexFloat{}
	}

	bars := make([]model.OHLCV, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		c := at(quote.Close, i)
		if !c.positive() {
			continue
		}
		bars = append(bars, model.OHLCV{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   at(quote.Open, i).Or(c.Value),
			High:   at(quote.High, i).Or(c.Value),
			Low:    at(quote.Low, i).Or(c.Value),
			Close:  c.Value,
			Volume: int64(at(quote.Volume, i).Value),
		})
	}
	return normalizeBars(bars)
}

// YahooFetcher implements Fetcher using a year of Yahoo Finance daily bars.
type YahooFetcher struct {
	yahooClient
}

// NewYahooFetcher creates a new Yahoo Finance chart fetcher.
func NewYahooFetcher(baseURL, userAgent string, timeout time.Duration, proxyURL string) *YahooFetcher {
	return &YahooFetcher{yahooClient: newYahooClient(baseURL, userAgent, timeout, proxyURL)}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) FetchSnapshot(ctx context.Context, symbol string) (*model.Snapshot, error) {
	result, err := f.fetchChart(ctx, symbol, url.Values{"interval": {"1d"}, "range": {"1y"}})
	if err != nil {
		return nil, fmt.Errorf("yahoo chart: %w", err)
	}
	bars := result.bars()
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo chart: %w: empty history for %q", ErrMalformedResponse, symbol)
	}
	snap := snapshotFromHistory(symbol, bars, 0)
	if result.Meta.MarketCap.positive() {
		snap.MarketCap = marketCapOr(result.Meta.MarketCap, 0)
	}
	return finalize(snap), nil
}
