package calculator

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPulse/internal/model"
)

func barsFromCloses(closes []float64) []model.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestCalculateSMA(t *testing.T) {
	v, err := CalculateSMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, v, 1e-9)

	_, err = CalculateSMA([]float64{1, 2}, 3)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	_, err = CalculateSMA([]float64{1, 2}, 0)
	assert.Error(t, err)
}

func TestCalculateEMA(t *testing.T) {
	v, err := CalculateEMA([]float64{1, 2}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 2.5/1.5, v, 1e-9)

	v, err = CalculateEMA([]float64{7, 7, 7, 7}, 12)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, v, 1e-9)

	_, err = CalculateEMA(nil, 12)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestCalculateRSI(t *testing.T) {
	t.Run("mixed moves", func(t *testing.T) {
		closes := []float64{100}
		for i := 0; i < 7; i++ {
			closes = append(closes, closes[len(closes)-1]+2, closes[len(closes)-1]+1)
		}
		rsi, err := CalculateRSI(closes, 14)
		require.NoError(t, err)
		assert.InDelta(t, 100-100/3.0, rsi, 1e-9)
	})

	t.Run("all gains defaults to neutral", func(t *testing.T) {
		rsi, err := CalculateRSI(linear(30, 10, 1), 14)
		require.NoError(t, err)
		assert.Equal(t, NeutralRSI, rsi)
	})

	t.Run("all losses is zero", func(t *testing.T) {
		rsi, err := CalculateRSI(linear(30, 100, -1), 14)
		require.NoError(t, err)
		assert.Equal(t, 0.0, rsi)
	})

	t.Run("flat series defaults to neutral", func(t *testing.T) {
		rsi, err := CalculateRSI(linear(30, 50, 0), 14)
		require.NoError(t, err)
		assert.Equal(t, NeutralRSI, rsi)
	})

	t.Run("insufficient history", func(t *testing.T) {
		rsi, err := CalculateRSI(linear(14, 10, 1), 14)
		assert.ErrorIs(t, err, ErrInsufficientHistory)
		assert.Equal(t, NeutralRSI, rsi)
	})
}

func TestCalculateMACD(t *testing.T) {
	assert.InDelta(t, 0.0, CalculateMACD(linear(40, 25, 0), 12, 26), 1e-9)
	assert.Equal(t, 0.0, CalculateMACD(nil, 12, 26))
	assert.Greater(t, CalculateMACD(linear(60, 10, 1), 12, 26), 0.0)
	assert.Less(t, CalculateMACD(linear(60, 100, -1), 12, 26), 0.0)
}

func TestCalculateBollinger(t *testing.T) {
	upper, lower, err := CalculateBollinger(linear(20, 1, 1), 20, 2)
	require.NoError(t, err)
	std := math.Sqrt(35)
	assert.InDelta(t, 10.5+2*std, upper, 1e-9)
	assert.InDelta(t, 10.5-2*std, lower, 1e-9)

	upper, lower, err = CalculateBollinger(linear(25, 42, 0), 20, 2)
	require.NoError(t, err)
	assert.Equal(t, 42.0, upper)
	assert.Equal(t, 42.0, lower)

	_, _, err = CalculateBollinger(linear(19, 1, 1), 20, 2)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, 2.68, Round2(2.675))
	assert.Equal(t, -1.24, Round2(-1.235))
	assert.Equal(t, 0.0, Round2(math.NaN()))
	assert.Equal(t, 0.0, Round2(math.Inf(1)))
}

func TestCompute_EmptySeriesReturnsDefault(t *testing.T) {
	set := Compute(nil)
	assert.Equal(t, model.DefaultIndicators(), set)
	assert.Equal(t, []string{model.SignalCalculationFailed}, set.Signals)
	assert.Equal(t, 50.0, set.RSI)
}

func TestCompute_InvalidCloseReturnsDefault(t *testing.T) {
	bars := barsFromCloses([]float64{10, 11, math.NaN()})
	assert.Equal(t, model.DefaultIndicators(), Compute(bars))
}

func TestCompute_RisingSeries(t *testing.T) {
	set := Compute(barsFromCloses(linear(250, 100, 0.5)))

	assert.Equal(t, Round2(mustSMA(t, linear(250, 100, 0.5), 20)), set.SMA20)
	assert.Greater(t, set.SMA20, set.SMA50)
	assert.Greater(t, set.SMA50, set.SMA200)
	assert.Equal(t, 50.0, set.RSI)
	assert.Greater(t, set.MACD, 0.0)
	assert.Equal(t, []string{"Price above 20-day MA", "Price above 50-day MA"}, set.Signals)
}

func TestCompute_FallingSeries(t *testing.T) {
	set := Compute(barsFromCloses(linear(250, 300, -0.5)))

	assert.Equal(t, 0.0, set.RSI)
	assert.Equal(t, []string{
		"Price below 20-day MA",
		"Price below 50-day MA",
		"RSI indicates oversold",
	}, set.Signals)
}

func TestCompute_OverboughtBreakout(t *testing.T) {
	closes := linear(60, 100, 0)
	for i := 0; i < 7; i++ {
		last := closes[len(closes)-1]
		closes = append(closes, last+3, last+2)
	}
	closes = append(closes, closes[len(closes)-1]+20)

	set := Compute(barsFromCloses(closes))
	assert.Greater(t, set.RSI, 70.0)
	assert.Equal(t, []string{
		"Price above 20-day MA",
		"Price above 50-day MA",
		"RSI indicates overbought",
		"Price above Bollinger upper band",
	}, set.Signals)
}

func TestCompute_ShortSeriesDegradesGracefully(t *testing.T) {
	set := Compute(barsFromCloses(linear(10, 20, 1)))

	assert.Equal(t, 0.0, set.SMA20)
	assert.Equal(t, 0.0, set.SMA50)
	assert.Equal(t, 0.0, set.SMA200)
	assert.Equal(t, 50.0, set.RSI)
	assert.Equal(t, 0.0, set.BollingerUpper)
	assert.Equal(t, 0.0, set.BollingerLower)
	assert.Equal(t, []string{"Price below 20-day MA", "Price below 50-day MA"}, set.Signals)
}

func TestCompute_RandomWalkProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		n := 200 + rng.Intn(100)
		closes := make([]float64, n)
		price := 50 + rng.Float64()*200
		for i := range closes {
			price *= 1 + (rng.Float64()-0.5)*0.06
			closes[i] = price
		}
		set := Compute(barsFromCloses(closes))

		for _, v := range []float64{set.SMA20, set.SMA50, set.SMA200, set.RSI, set.MACD, set.BollingerUpper, set.BollingerLower} {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
		assert.GreaterOrEqual(t, set.BollingerUpper, set.BollingerLower)
		assert.GreaterOrEqual(t, set.RSI, 0.0)
		assert.LessOrEqual(t, set.RSI, 100.0)

		var ma20, ma50 int
		for _, s := range set.Signals {
			switch s {
			case "Price above 20-day MA", "Price below 20-day MA":
				ma20++
			case "Price above 50-day MA", "Price below 50-day MA":
				ma50++
			}
		}
		assert.Equal(t, 1, ma20)
		assert.Equal(t, 1, ma50)
	}
}

func TestCalculate52WeekRange(t *testing.T) {
	bars := barsFromCloses(linear(300, 10, 1))
	high, low, err := Calculate52WeekRange(bars)
	require.NoError(t, err)
	assert.InDelta(t, 309*1.01, high, 1e-9)
	assert.InDelta(t, 58*0.99, low, 1e-9)

	_, _, err = Calculate52WeekRange(nil)
	assert.Error(t, err)
}

func TestCalculate52WeekPosition(t *testing.T) {
	pos, err := Calculate52WeekPosition(150, 200, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.5, pos)

	pos, _ = Calculate52WeekPosition(250, 200, 100)
	assert.Equal(t, 1.0, pos)

	pos, _ = Calculate52WeekPosition(7, 7, 7)
	assert.Equal(t, 0.5, pos)

	_, err = Calculate52WeekPosition(1, 1, 2)
	assert.Error(t, err)
}

func TestAverageVolume(t *testing.T) {
	bars := []model.OHLCV{{Volume: 100}, {Volume: 201}}
	assert.Equal(t, int64(150), AverageVolume(bars))
	assert.Equal(t, int64(0), AverageVolume(nil))
}

func mustSMA(t *testing.T, prices []float64, period int) float64 {
	t.Helper()
	v, err := CalculateSMA(prices, period)
	require.NoError(t, err)
	return v
}
