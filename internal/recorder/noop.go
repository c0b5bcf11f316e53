package recorder

import "StockPulse/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSnapshot(_ *model.Snapshot) error { return nil }
func (n *NoopRecorder) RecentSnapshots(_ string, _ int) ([]SnapshotRecord, error) {
	return nil, ErrNotPersisted
}
func (n *NoopRecorder) Close() error { return nil }
