package collector

// DefaultBaselinePrice anchors synthetic data for symbols outside the catalog.
const DefaultBaselinePrice = 100.0

type catalogEntry struct {
	name     string
	baseline float64
}

var catalog = map[string]catalogEntry{
	"AAPL":  {"Apple Inc.", 175.43},
	"MSFT":  {"Microsoft Corporation", 330.15},
	"GOOGL": {"Alphabet Inc.", 138.21},
	"AMZN":  {"Amazon.com Inc.", 128.35},
	"TSLA":  {"Tesla Inc.", 248.50},
	"NVDA":  {"NVIDIA Corporation", 445.12},
	"AMD":   {"Advanced Micro Devices Inc.", 102.78},
	"INTC":  {"Intel Corporation", 34.89},
	"CRM":   {"Salesforce Inc.", 248.90},
	"ADBE":  {"Adobe Inc.", 498.67},
	"META":  {"Meta Platforms Inc.", 298.45},
	"NFLX":  {"Netflix Inc.", 495.23},
	"PYPL":  {"PayPal Holdings Inc.", 62.34},
	"SQ":    {"Block Inc.", 78.90},
	"UBER":  {"Uber Technologies Inc.", 42.15},
}

// DisplayName returns the company name for a known symbol, or the symbol itself.
func DisplayName(symbol string) string {
	if e, ok := catalog[symbol]; ok {
		return e.name
	}
	return symbol
}

// BaselinePrice returns the synthetic anchor price for a symbol.
func BaselinePrice(symbol string) float64 {
	if e, ok := catalog[symbol]; ok {
		return e.baseline
	}
	return DefaultBaselinePrice
}
