package collector

import (
	"context"

	"StockPulse/internal/model"
)

// Fetcher acquires a normalized snapshot for one symbol from a single upstream source.
// Implementations must return either a complete snapshot with a non-empty
// price history or an error wrapping ErrProviderUnavailable or ErrMalformedResponse.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, symbol string) (*model.Snapshot, error)
	Name() string
}
