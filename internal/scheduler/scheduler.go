package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"StockPulse/internal/collector"
	"StockPulse/internal/model"
	"StockPulse/internal/notifier"
	"StockPulse/internal/publisher"
	"StockPulse/internal/recorder"

	"github.com/robfig/cron/v3"
)

// Sender delivers chat messages. *notifier.TelegramNotifier implements it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Observer is told about refresh side effects.
type Observer interface {
	ObserveRecord(err error)
	ObservePublish(err error)
}

// RefreshTracker records completed refreshes for health reporting.
type RefreshTracker interface {
	SetRefreshed(at time.Time, synthetic int)
	SetRecorderOK(ok bool)
}

const sendRetries = 3

// Scheduler periodically refreshes the watchlist and answers chat commands.
type Scheduler struct {
	Cron          *cron.Cron
	Collector     *collector.Collector
	Watchlist     []string
	MaxConcurrent int
	Recorder      recorder.Recorder
	Publisher     publisher.Publisher
	Notifier      Sender
	Observer      Observer
	Health        RefreshTracker
	Ctx           context.Context

	mu       sync.Mutex
	running  bool
	stopped  bool
	inflight sync.WaitGroup
}

// NewScheduler creates a new Scheduler. A nil notifier disables chat output.
func NewScheduler(ctx context.Context, col *collector.Collector, watchlist []string, maxConcurrent int,
	rec recorder.Recorder, pub publisher.Publisher, tn Sender) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if pub == nil {
		pub = publisher.NewNoopPublisher()
	}
	return &Scheduler{
		Cron:          cron.New(cron.WithSeconds()),
		Collector:     col,
		Watchlist:     watchlist,
		MaxConcurrent: maxConcurrent,
		Recorder:      rec,
		Publisher:     pub,
		Notifier:      tn,
		Ctx:           ctx,
	}
}

// Register schedules the watchlist refresh.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, func() { s.refreshTask() }); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for any running refresh to
// finish, including ones started outside cron. Later refreshes are skipped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	<-s.Cron.Stop().Done()
	s.inflight.Wait()
	log.Println("[INFO] scheduler stopped")
}

// RunRefreshNow executes the refresh immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunRefreshNow() []*model.Snapshot {
	return s.refreshTask()
}

// RefreshInBackground starts a refresh without blocking. Stop waits for it.
func (s *Scheduler) RefreshInBackground() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.refreshTask()
	}()
}

func (s *Scheduler) refreshTask() []*model.Snapshot {
	snaps := s.refresh()
	if len(snaps) > 0 {
		s.trySend(notifier.FormatDigest(snaps, time.Now()))
	}
	return snaps
}

// refresh fetches the watchlist, then records and publishes every snapshot.
// Overlapping runs, and runs after Stop, are skipped and return nil.
func (s *Scheduler) refresh() []*model.Snapshot {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	if s.running {
		s.mu.Unlock()
		log.Println("[WARN] refresh already running, skipping")
		return nil
	}
	s.running = true
	s.inflight.Add(1)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.inflight.Done()
	}()

	log.Printf("[INFO] refreshing %d symbols", len(s.Watchlist))
	start := time.Now()
	snaps := s.Collector.GetMultipleStocksData(s.Ctx, s.Watchlist, s.MaxConcurrent)

	synthetic := 0
	recorderOK := true
	for _, snap := range snaps {
		if snap.IsSynthetic {
			synthetic++
		}
		err := s.Recorder.RecordSnapshot(snap)
		if err != nil {
			recorderOK = false
			log.Printf("[ERROR] record %s: %v", snap.Symbol, err)
		}
		if s.Observer != nil {
			s.Observer.ObserveRecord(err)
		}

		err = s.Publisher.PublishSnapshot(s.Ctx, snap)
		if err != nil {
			log.Printf("[ERROR] publish %s: %v", snap.Symbol, err)
		}
		if s.Observer != nil {
			s.Observer.ObservePublish(err)
		}
	}
	if s.Health != nil {
		s.Health.SetRefreshed(time.Now(), synthetic)
		s.Health.SetRecorderOK(recorderOK)
	}
	log.Printf("[INFO] refresh done: %d symbols, %d synthetic, took %v",
		len(snaps), synthetic, time.Since(start).Round(time.Millisecond))
	return snaps
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	// Telegram appends the bot name in groups: /quote@PulseBot AAPL
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")

	switch name {
	case "/quote":
		if len(fields) < 2 {
			return "Usage: /quote SYMBOL"
		}
		snap := s.Collector.GetStockData(ctx, strings.ToUpper(fields[1]))
		return notifier.FormatSnapshot(snap)
	case "/watchlist":
		snaps := s.refresh()
		if snaps == nil {
			return "A refresh is already running, try again shortly"
		}
		return notifier.FormatDigest(snaps, time.Now())
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
