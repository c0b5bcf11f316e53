package collector

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"StockPulse/internal/calculator"
	"StockPulse/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Label     string
	Price     float64
	DailyData []model.OHLCV
	Err       error
}

func (m *MockFetcher) Name() string {
	if m.Label != "" {
		return m.Label
	}
	return "mock"
}

func (m *MockFetcher) FetchSnapshot(_ context.Context, symbol string) (*model.Snapshot, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	bars := m.DailyData
	if bars == nil {
		bars = generateMockBars(m.Price, calculator.TradingDaysPerYear)
	}
	return finalize(snapshotFromHistory(symbol, bars, 0)), nil
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Date:   today.AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Observer receives acquisition telemetry.
type Observer interface {
	ObserveAttempt(provider, outcome string, elapsed time.Duration)
	ObserveSynthetic(symbol string)
	ObserveBatch(size int)
}

type noopObserver struct{}

func (noopObserver) ObserveAttempt(string, string, time.Duration) {}
func (noopObserver) ObserveSynthetic(string)                      {}
func (noopObserver) ObserveBatch(int)                             {}

// Options tunes retry and batch pacing.
type Options struct {
	// RetryAttempts applies to every fetcher after the first.
	RetryAttempts   int
	RetryMinBackoff time.Duration
	RetryMaxBackoff time.Duration
	BatchMinDelay   time.Duration
	BatchMaxDelay   time.Duration
	// Seed drives retry and batch jitter. Zero uses the clock.
	Seed     int64
	Observer Observer
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultOptions mirrors the pacing of the public upstream APIs.
func DefaultOptions() Options {
	return Options{
		RetryAttempts:   3,
		RetryMinBackoff: 1 * time.Second,
		RetryMaxBackoff: 3 * time.Second,
		BatchMinDelay:   2 * time.Second,
		BatchMaxDelay:   5 * time.Second,
	}
}

// Collector drives the fetcher chain and falls back to synthetic data.
type Collector struct {
	fetchers  []Fetcher
	synthetic *SyntheticGenerator
	opts      Options

	mu  sync.Mutex
	rng *rand.Rand
}

// NewCollector creates a Collector trying fetchers in the given priority order.
func NewCollector(fetchers []Fetcher, synthetic *SyntheticGenerator, opts Options) *Collector {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if synthetic == nil {
		synthetic = NewSyntheticGenerator(opts.Seed)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Collector{
		fetchers:  fetchers,
		synthetic: synthetic,
		opts:      opts,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Fetchers returns the names of the configured fetchers in priority order.
func (c *Collector) Fetchers() []string {
	names := make([]string, len(c.fetchers))
	for i, f := range c.fetchers {
		names[i] = f.Name()
	}
	return names
}

// GetStockData returns the first snapshot a fetcher produces, or a
// synthetic one when every fetcher fails. It never returns nil.
func (c *Collector) GetStockData(ctx context.Context, symbol string) *model.Snapshot {
	var attempts []model.Attempt

chain:
	for i, f := range c.fetchers {
		tries := 1
		if i > 0 {
			tries = c.opts.RetryAttempts
		}
		for try := 1; try <= tries; try++ {
			if try > 1 {
				if err := c.opts.Sleep(ctx, c.jitter(c.opts.RetryMinBackoff, c.opts.RetryMaxBackoff)); err != nil {
					attempts = append(attempts, attemptOf(f.Name(), fmt.Errorf("%w: %w", errCanceled, err)))
					break chain
				}
			}
			if ctx.Err() != nil {
				attempts = append(attempts, attemptOf(f.Name(), fmt.Errorf("%w: %w", errCanceled, ctx.Err())))
				break chain
			}

			snap, err := c.try(ctx, f, symbol)
			attempts = append(attempts, attemptOf(f.Name(), err))
			if err == nil {
				snap.IsSynthetic = false
				snap.Provenance.Source = f.Name()
				snap.Provenance.Synthetic = false
				snap.Provenance.Attempts = attempts
				snap.Provenance.FetchedAt = time.Now()
				log.Printf("[INFO] %s: data from %s", symbol, f.Name())
				return snap
			}
			log.Printf("[WARN] %s: %s failed (attempt %d/%d, %s): %v", symbol, f.Name(), try, tries, Category(err), err)
		}
	}

	log.Printf("[WARN] %s: %v, using synthetic data", symbol, ErrAllProvidersExhausted)
	c.opts.Observer.ObserveSynthetic(symbol)
	snap := c.synthetic.Generate(symbol)
	snap.Provenance.Attempts = attempts
	return snap
}

// try runs one fetch, converting panics and hollow snapshots into errors.
func (c *Collector) try(ctx context.Context, f Fetcher, symbol string) (snap *model.Snapshot, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			snap = nil
			err = fmt.Errorf("%w: %v", ErrProviderPanic, r)
		}
		c.opts.Observer.ObserveAttempt(f.Name(), Category(err), time.Since(start))
	}()

	snap, err = f.FetchSnapshot(ctx, symbol)
	if err == nil && (snap == nil || len(snap.PriceHistory) == 0) {
		snap, err = nil, fmt.Errorf("%w: %s returned no history", ErrMalformedResponse, f.Name())
	}
	return snap, err
}

func attemptOf(provider string, err error) model.Attempt {
	a := model.Attempt{Provider: provider, Category: Category(err)}
	if err != nil {
		a.Error = err.Error()
	}
	return a
}

// GetMultipleStocksData fetches symbols in batches of maxConcurrent,
// pausing a random delay between batches. Symbols within a batch are
// fetched concurrently; results keep the input order.
func (c *Collector) GetMultipleStocksData(ctx context.Context, symbols []string, maxConcurrent int) []*model.Snapshot {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	results := make([]*model.Snapshot, len(symbols))

	for start := 0; start < len(symbols); start += maxConcurrent {
		end := min(start+maxConcurrent, len(symbols))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = c.GetStockData(ctx, symbols[i])
			}(i)
		}
		wg.Wait()
		c.opts.Observer.ObserveBatch(end - start)

		if end < len(symbols) {
			if err := c.opts.Sleep(ctx, c.jitter(c.opts.BatchMinDelay, c.opts.BatchMaxDelay)); err != nil {
				log.Printf("[WARN] batch delay interrupted: %v", err)
			}
		}
	}
	return results
}

// jitter returns a random duration in [lo, hi).
func (c *Collector) jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo + time.Duration(c.rng.Int63n(int64(hi-lo)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
