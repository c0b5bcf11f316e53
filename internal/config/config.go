package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// DefaultWatchlist is refreshed when the config names no symbols.
var DefaultWatchlist = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA",
	"NVDA", "AMD", "INTC", "CRM", "ADBE",
	"META", "NFLX", "PYPL", "SQ", "UBER",
}

// Config holds all application configuration.
type Config struct {
	Providers struct {
		Timeout       time.Duration `yaml:"timeout"`
		RetryAttempts int           `yaml:"retry_attempts"`
		UserAgent     string        `yaml:"user_agent"`
		Robinhood     struct {
			BaseURL string `yaml:"base_url"`
			Enabled *bool  `yaml:"enabled"`
		} `yaml:"robinhood"`
		Yahoo struct {
			BaseURL string `yaml:"base_url"`
		} `yaml:"yahoo"`
		VsTrader struct {
			BaseURL string `yaml:"base_url"`
			APIKey  string `yaml:"api_key"`
		} `yaml:"vstrader"`
	} `yaml:"providers"`
	Batch struct {
		MaxConcurrent int           `yaml:"max_concurrent"`
		MinDelay      time.Duration `yaml:"min_delay"`
		MaxDelay      time.Duration `yaml:"max_delay"`
	} `yaml:"batch"`
	Synthetic struct {
		Seed int64 `yaml:"seed"`
	} `yaml:"synthetic"`
	Watchlist []string `yaml:"watchlist"`
	Schedule  struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ROBINHOOD_BASE_URL"); v != "" {
		c.Providers.Robinhood.BaseURL = v
	}
	if v := os.Getenv("YAHOO_BASE_URL"); v != "" {
		c.Providers.Yahoo.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		c.Providers.VsTrader.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		c.Providers.VsTrader.APIKey = v
	}
	if v := os.Getenv("PROVIDER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PROVIDER_TIMEOUT: %w", err)
		}
		c.Providers.Timeout = d
	}
	if v := os.Getenv("MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_CONCURRENT: %w", err)
		}
		c.Batch.MaxConcurrent = n
	}
	if v := os.Getenv("SYNTHETIC_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SYNTHETIC_SEED: %w", err)
		}
		c.Synthetic.Seed = n
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		c.Schedule.RefreshCron = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Providers.Timeout == 0 {
		c.Providers.Timeout = 10 * time.Second
	}
	if c.Providers.RetryAttempts == 0 {
		c.Providers.RetryAttempts = 3
	}
	if c.Providers.Robinhood.BaseURL == "" {
		c.Providers.Robinhood.BaseURL = "https://api.robinhood.com"
	}
	if c.Providers.Robinhood.Enabled == nil {
		enabled := true
		c.Providers.Robinhood.Enabled = &enabled
	}
	if c.Providers.Yahoo.BaseURL == "" {
		c.Providers.Yahoo.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Batch.MaxConcurrent == 0 {
		c.Batch.MaxConcurrent = 3
	}
	if c.Batch.MinDelay == 0 && c.Batch.MaxDelay == 0 {
		c.Batch.MinDelay = 2 * time.Second
		c.Batch.MaxDelay = 5 * time.Second
	}
	if len(c.Watchlist) == 0 {
		c.Watchlist = append([]string(nil), DefaultWatchlist...)
	}
	for i, s := range c.Watchlist {
		c.Watchlist[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 */30 9-16 * * 1-5"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "stock-snapshots"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/stock_pulse.db"
	}
}

// RobinhoodEnabled reports whether the Robinhood adapter heads the chain.
func (c *Config) RobinhoodEnabled() bool {
	return c.Providers.Robinhood.Enabled == nil || *c.Providers.Robinhood.Enabled
}

// Validate checks ranges and paired settings.
func (c *Config) Validate() error {
	if c.Providers.Timeout <= 0 {
		return errors.New("providers.timeout must be positive")
	}
	if c.Providers.RetryAttempts < 1 {
		return errors.New("providers.retry_attempts must be at least 1")
	}
	if c.Batch.MaxConcurrent < 1 {
		return errors.New("batch.max_concurrent must be at least 1")
	}
	if c.Batch.MinDelay < 0 || c.Batch.MinDelay > c.Batch.MaxDelay {
		return fmt.Errorf("batch delays must satisfy 0 <= min_delay (%s) <= max_delay (%s)",
			c.Batch.MinDelay, c.Batch.MaxDelay)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return errors.New("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
