package publisher

import (
	"context"
	"time"

	"StockPulse/internal/model"
)

// EventSnapshotRefreshed is emitted once per refreshed symbol.
const EventSnapshotRefreshed = "SNAPSHOT_REFRESHED"

// SnapshotEvent is the message body written to the broker.
type SnapshotEvent struct {
	EventType string          `json:"event_type"`
	Symbol    string          `json:"symbol"`
	Snapshot  *model.Snapshot `json:"snapshot"`
	Timestamp time.Time       `json:"timestamp"`
}

// Publisher fans refreshed snapshots out to downstream consumers.
type Publisher interface {
	PublishSnapshot(ctx context.Context, snap *model.Snapshot) error
	Close() error
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (NoopPublisher) PublishSnapshot(context.Context, *model.Snapshot) error { return nil }
func (NoopPublisher) Close() error                                           { return nil }
