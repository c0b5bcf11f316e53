// Package format renders acquired numbers for display.
package format

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"StockPulse/internal/model"
)

// MarketCap renders a capitalization as $x.xxT / $x.xxB / $x.xxM, or with
// thousands separators below one million. Zero, negative and non-finite
// values render as "N/A".
func MarketCap(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return model.NotAvailable
	}
	switch {
	case v >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	default:
		return "$" + humanize.Comma(int64(math.Round(v)))
	}
}

// Volume renders a share count with thousands separators.
func Volume(v int64) string {
	return humanize.Comma(v)
}

// Percent renders a signed percentage with two decimals.
func Percent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}
