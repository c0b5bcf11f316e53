package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockPulse/internal/api"
	"StockPulse/internal/collector"
	"StockPulse/internal/config"
	"StockPulse/internal/metrics"
	"StockPulse/internal/notifier"
	"StockPulse/internal/publisher"
	"StockPulse/internal/recorder"
	"StockPulse/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] StockPulse starting...")

	// Load config
	cfgPath := config.DefaultPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init fetchers in priority order
	fetchers := buildFetchers(cfg)
	m := metrics.NewMetrics()

	opts := collector.DefaultOptions()
	opts.RetryAttempts = cfg.Providers.RetryAttempts
	opts.BatchMinDelay = cfg.Batch.MinDelay
	opts.BatchMaxDelay = cfg.Batch.MaxDelay
	opts.Seed = cfg.Synthetic.Seed
	opts.Observer = m
	col := collector.NewCollector(fetchers, collector.NewSyntheticGenerator(cfg.Synthetic.Seed), opts)
	log.Printf("[INFO] data sources: %v (synthetic fallback)", col.Fetchers())

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init publisher
	var pub publisher.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp := publisher.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		pub = kp
		defer kp.Close()
	} else {
		pub = publisher.NewNoopPublisher()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	} else {
		log.Println("[INFO] telegram not configured, notifications disabled")
	}

	health := metrics.NewHealthStatus(col.Fetchers())

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, col, cfg.Watchlist, cfg.Batch.MaxConcurrent, rec, pub, sender)
	sched.Observer = m
	sched.Health = health
	if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// HTTP API
	handler := api.NewHandler(col, rec, cfg.Watchlist, cfg.Batch.MaxConcurrent)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.SetupRoutes(handler, health, m.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[INFO] HTTP server listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[FATAL] http server: %v", err)
		}
	}()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, refreshing watchlist now")
		sched.RefreshInBackground()
	}

	log.Println("[INFO] StockPulse is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	log.Println("[INFO] StockPulse stopped")
}

// buildFetchers assembles the live provider chain: robinhood (optional),
// yahoo chart, vstrader (when configured), then yahoo meta.
func buildFetchers(cfg *config.Config) []collector.Fetcher {
	p := cfg.Providers
	var fetchers []collector.Fetcher
	if cfg.RobinhoodEnabled() {
		fetchers = append(fetchers, collector.NewRobinhoodFetcher(p.Robinhood.BaseURL, p.UserAgent, p.Timeout, cfg.Proxy))
	}
	fetchers = append(fetchers, collector.NewYahooFetcher(p.Yahoo.BaseURL, p.UserAgent, p.Timeout, cfg.Proxy))
	if p.VsTrader.BaseURL != "" {
		fetchers = append(fetchers, collector.NewVsTraderFetcher(p.VsTrader.BaseURL, p.VsTrader.APIKey, p.Timeout, cfg.Proxy))
	}
	fetchers = append(fetchers, collector.NewYahooMetaFetcher(p.Yahoo.BaseURL, p.UserAgent, p.Timeout, cfg.Proxy))
	return fetchers
}
