package recorder

import (
	"errors"
	"time"

	"StockPulse/internal/model"
)

// ErrNotPersisted is returned by reads against a recorder that stores nothing.
var ErrNotPersisted = errors.New("recorder does not persist snapshots")

// SnapshotRecord is one persisted refresh of a symbol.
type SnapshotRecord struct {
	ID             int64
	RecordedAt     time.Time
	Symbol         string
	Source         string
	Synthetic      bool
	Estimated      bool
	CurrentPrice   float64
	PriceChangePct float64
	Volume         int64
	MarketCap      string
	Indicators     model.IndicatorSet
	Attempts       []model.Attempt
}

// Recorder persists snapshot history for later analysis.
type Recorder interface {
	RecordSnapshot(snap *model.Snapshot) error
	// RecentSnapshots returns the newest records for symbol, newest first.
	RecentSnapshots(symbol string, limit int) ([]SnapshotRecord, error)
	Close() error
}
