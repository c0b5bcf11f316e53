package collector

import (
	"math/rand"
	"sync"
	"time"

	"StockPulse/internal/calculator"
	"StockPulse/internal/format"
	"StockPulse/internal/model"
)

// SyntheticSource is the provenance source of generated snapshots.
const SyntheticSource = "synthetic"

// SyntheticGenerator fabricates a plausible snapshot anchored to a
// baseline price. Output is always tagged as synthetic.
type SyntheticGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSyntheticGenerator creates a generator. A zero seed uses the clock.
func NewSyntheticGenerator(seed int64) *SyntheticGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SyntheticGenerator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

func (g *SyntheticGenerator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// intBetween returns an integer in [lo, hi].
func (g *SyntheticGenerator) intBetween(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Int63n(hi-lo+1)
}

// Generate builds a snapshot for symbol. The current price stays within
// ±3% of the baseline and the day's change within ±5% of it.
func (g *SyntheticGenerator) Generate(symbol string) *model.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	base := BaselinePrice(symbol)
	current := base * (1 + g.uniform(-0.03, 0.03))
	change := g.uniform(-base*0.05, base*0.05)

	end := g.now().UTC().Truncate(24 * time.Hour)
	history := make([]model.OHLCV, calculator.TradingDaysPerYear)
	for i := range history {
		history[i] = model.OHLCV{
			Date:   end.AddDate(0, 0, i-len(history)+1),
			Open:   current + g.uniform(-base*0.02, base*0.02),
			High:   current + g.uniform(0, base*0.03),
			Low:    current + g.uniform(-base*0.03, 0),
			Close:  current + g.uniform(-base*0.015, base*0.015),
			Volume: g.intBetween(int64(base*10000), int64(base*50000)),
		}
	}

	snap := &model.Snapshot{
		Symbol:         symbol,
		DisplayName:    DisplayName(symbol),
		CurrentPrice:   calculator.Round2(current),
		PreviousClose:  calculator.Round2(current - change),
		PriceChange:    calculator.Round2(change),
		PriceChangePct: calculator.Round2(change / current * 100),
		High52w:        calculator.Round2(current * 1.15),
		Low52w:         calculator.Round2(current * 0.85),
		Volume:         g.intBetween(int64(base*10000), int64(base*50000)),
		AvgVolume:      g.intBetween(int64(base*15000), int64(base*40000)),
		PERatio:        model.NewPERatio(float64(g.intBetween(15, 35))),
		MarketCap:      format.MarketCap(current * float64(g.intBetween(5_000_000_000, 50_000_000_000))),
		PriceHistory:   history,
		IsSynthetic:    true,
		Provenance: model.Provenance{
			Source:           SyntheticSource,
			Synthetic:        true,
			EstimatedHistory: true,
			FetchedAt:        g.now(),
		},
	}
	snap.TechnicalAnalysis = calculator.Compute(history)
	return snap
}
