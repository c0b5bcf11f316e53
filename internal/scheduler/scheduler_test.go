package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPulse/internal/collector"
	"StockPulse/internal/model"
	"StockPulse/internal/recorder"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

type memRecorder struct {
	recorder.NoopRecorder
	mu    sync.Mutex
	snaps []*model.Snapshot
	err   error
}

func (m *memRecorder) RecordSnapshot(s *model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps = append(m.snaps, s)
	return m.err
}

type memPublisher struct {
	mu      sync.Mutex
	symbols []string
}

func (p *memPublisher) PublishSnapshot(_ context.Context, s *model.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.symbols = append(p.symbols, s.Symbol)
	return nil
}

func (p *memPublisher) Close() error { return nil }

type counts struct {
	recordErrs, publishes int
	refreshedSynthetic    int
	recorderOK            bool
}

func (c *counts) ObserveRecord(err error) {
	if err != nil {
		c.recordErrs++
	}
}

func (c *counts) ObservePublish(error) { c.publishes++ }

func (c *counts) SetRefreshed(_ time.Time, synthetic int) { c.refreshedSynthetic = synthetic }

func (c *counts) SetRecorderOK(ok bool) { c.recorderOK = ok }

func newTestCollector(fetchers ...collector.Fetcher) *collector.Collector {
	opts := collector.DefaultOptions()
	opts.Seed = 3
	opts.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return collector.NewCollector(fetchers, nil, opts)
}

func TestRefresh_RecordsPublishesAndNotifies(t *testing.T) {
	col := newTestCollector(&collector.MockFetcher{Price: 100})
	rec := &memRecorder{}
	pub := &memPublisher{}
	sender := &fakeSender{}
	c := &counts{}

	s := NewScheduler(context.Background(), col, []string{"AAPL", "MSFT", "NVDA", "AMD"}, 3, rec, pub, sender)
	s.Observer = c
	s.Health = c

	snaps := s.RunRefreshNow()
	require.Len(t, snaps, 4)
	assert.Len(t, rec.snaps, 4)
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA", "AMD"}, pub.symbols)
	assert.Equal(t, 4, c.publishes)
	assert.True(t, c.recorderOK)
	assert.Equal(t, 0, c.refreshedSynthetic)

	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "<b>NVDA</b>")
}

func TestRefresh_SyntheticAndRecorderFailure(t *testing.T) {
	col := newTestCollector(&collector.MockFetcher{Err: collector.ErrProviderUnavailable})
	rec := &memRecorder{err: errors.New("disk full")}
	c := &counts{}

	s := NewScheduler(context.Background(), col, []string{"AAPL", "ZZZ"}, 2, rec, nil, nil)
	s.Observer = c
	s.Health = c

	snaps := s.RunRefreshNow()
	require.Len(t, snaps, 2)
	for _, snap := range snaps {
		assert.True(t, snap.IsSynthetic)
	}
	assert.Equal(t, 2, c.recordErrs)
	assert.False(t, c.recorderOK)
	assert.Equal(t, 2, c.refreshedSynthetic)
}

type gatedFetcher struct {
	started chan struct{}
	release chan struct{}
}

func (g *gatedFetcher) Name() string { return "gated" }

func (g *gatedFetcher) FetchSnapshot(ctx context.Context, symbol string) (*model.Snapshot, error) {
	close(g.started)
	<-g.release
	return (&collector.MockFetcher{Price: 42}).FetchSnapshot(ctx, symbol)
}

func TestStop_WaitsForBackgroundRefresh(t *testing.T) {
	g := &gatedFetcher{started: make(chan struct{}), release: make(chan struct{})}
	rec := &memRecorder{}
	s := NewScheduler(context.Background(), newTestCollector(g), []string{"AAPL"}, 1, rec, nil, nil)
	s.Start()

	s.RefreshInBackground()
	<-g.started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while a refresh was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(g.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the refresh finished")
	}
	rec.mu.Lock()
	assert.Len(t, rec.snaps, 1)
	rec.mu.Unlock()

	assert.Nil(t, s.RunRefreshNow())
	s.RefreshInBackground()
	assert.Len(t, rec.snaps, 1)
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), newTestCollector(), nil, 1, nil, nil, nil)
	assert.NoError(t, s.Register("0 */30 9-16 * * 1-5"))
	assert.Error(t, s.Register("not a cron"))
	s.Start()
	s.Stop()
}

func TestHandleCommand(t *testing.T) {
	col := newTestCollector(&collector.MockFetcher{Label: "mock", Price: 50})
	s := NewScheduler(context.Background(), col, []string{"AAPL", "TSLA"}, 2, nil, nil, nil)
	ctx := context.Background()

	reply := s.HandleCommand(ctx, "/quote tsla")
	assert.Contains(t, reply, "<b>TSLA</b> Tesla Inc.")
	assert.Contains(t, reply, "Source: mock")

	assert.Contains(t, s.HandleCommand(ctx, "/quote@PulseBot AAPL"), "<b>AAPL</b>")
	assert.Equal(t, "Usage: /quote SYMBOL", s.HandleCommand(ctx, "/quote"))
	digest := s.HandleCommand(ctx, "/watchlist")
	assert.Contains(t, digest, "<b>AAPL</b>")
	assert.Contains(t, digest, "<b>TSLA</b>")
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "/quote SYMBOL")
	assert.Contains(t, s.HandleCommand(ctx, "   "), "/quote SYMBOL")
}
