package format

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarketCap(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5e12, "$1.50T"},
		{2.3e9, "$2.30B"},
		{4.56e6, "$4.56M"},
		{999999, "$999,999"},
		{1234.4, "$1,234"},
		{0, "N/A"},
		{-5, "N/A"},
		{math.NaN(), "N/A"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MarketCap(tt.in), "input %v", tt.in)
	}
}

func TestVolumeAndPercent(t *testing.T) {
	assert.Equal(t, "12,345,678", Volume(12345678))
	assert.Equal(t, "+1.25%", Percent(1.25))
	assert.Equal(t, "-0.50%", Percent(-0.5))
}
