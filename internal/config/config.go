package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider string `yaml:"provider"` // "yahoo" or "rest"
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"data_source"`
	Store struct {
		SQLitePath       string `yaml:"sqlite_path"`
		FreshnessSeconds int    `yaml:"freshness_seconds"`
	} `yaml:"store"`
	Scan struct {
		SMAFast                 int     `yaml:"sma_fast"`
		SMASlow                 int     `yaml:"sma_slow"`
		RSIPeriod               int     `yaml:"rsi_period"`
		RSIMin                  float64 `yaml:"rsi_min"`
		RSIMax                  float64 `yaml:"rsi_max"`
		MinHistoryDays          int     `yaml:"min_history_days"`
		MaxGapDays              int     `yaml:"max_gap_days"`
		PullbackLookbackDays    int     `yaml:"pullback_lookback_days"`
		PullbackTolerancePct    float64 `yaml:"pullback_tolerance_pct"`
		BreakoutLookbackDays    int     `yaml:"breakout_lookback_days"`
		VolumeConfirmationRatio float64 `yaml:"volume_confirmation_ratio"`
		LiquidityMinAvgVolume   float64 `yaml:"liquidity_min_avg_volume"`
		Workers                 int     `yaml:"workers"`
	} `yaml:"scan"`
	Fetch struct {
		MaxAttempts   int `yaml:"max_attempts"`
		BackoffBaseMS int `yaml:"backoff_base_ms"`
		BackoffMaxMS  int `yaml:"backoff_max_ms"`
		RateLimitMS   int `yaml:"rate_limit_ms"`
		HistoryDays   int `yaml:"history_days"`
	} `yaml:"fetch"`
	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
	Schedule struct {
		ScanCron string `yaml:"scan_cron"`
	} `yaml:"schedule"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file yields the default config.
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

	// Environment variable overrides
	if v := os.Getenv("TRENDSCOUT_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("TRENDSCOUT_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("TRENDSCOUT_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("SCAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Scan.Workers = n
		}
	}
	if v := os.Getenv("CACHE_FRESHNESS_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Store.FreshnessSeconds = n
		}
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = "data/trendscout.db"
	}
	if cfg.Store.FreshnessSeconds == 0 {
		cfg.Store.FreshnessSeconds = 86400
	}
	if cfg.Scan.SMAFast == 0 {
		cfg.Scan.SMAFast = 20
	}
	if cfg.Scan.SMASlow == 0 {
		cfg.Scan.SMASlow = 50
	}
	if cfg.Scan.RSIPeriod == 0 {
		cfg.Scan.RSIPeriod = 14
	}
	if cfg.Scan.RSIMin == 0 {
		cfg.Scan.RSIMin = 40
	}
	if cfg.Scan.RSIMax == 0 {
		cfg.Scan.RSIMax = 70
	}
	if cfg.Scan.MinHistoryDays == 0 {
		cfg.Scan.MinHistoryDays = 60
	}
	if cfg.Scan.MaxGapDays == 0 {
		cfg.Scan.MaxGapDays = 10
	}
	if cfg.Scan.PullbackLookbackDays == 0 {
		cfg.Scan.PullbackLookbackDays = 5
	}
	if cfg.Scan.PullbackTolerancePct == 0 {
		cfg.Scan.PullbackTolerancePct = 1.0
	}
	if cfg.Scan.BreakoutLookbackDays == 0 {
		cfg.Scan.BreakoutLookbackDays = 20
	}
	if cfg.Scan.VolumeConfirmationRatio == 0 {
		cfg.Scan.VolumeConfirmationRatio = 1.2
	}
	if cfg.Scan.LiquidityMinAvgVolume == 0 {
		cfg.Scan.LiquidityMinAvgVolume = 100000
	}
	if cfg.Scan.Workers == 0 {
		cfg.Scan.Workers = 8
	}
	if cfg.Fetch.MaxAttempts == 0 {
		cfg.Fetch.MaxAttempts = 4
	}
	if cfg.Fetch.BackoffBaseMS == 0 {
		cfg.Fetch.BackoffBaseMS = 500
	}
	if cfg.Fetch.BackoffMaxMS == 0 {
		cfg.Fetch.BackoffMaxMS = 8000
	}
	if cfg.Fetch.RateLimitMS == 0 {
		cfg.Fetch.RateLimitMS = 100
	}
	if cfg.Fetch.HistoryDays == 0 {
		cfg.Fetch.HistoryDays = 365
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "outputs"
	}
	if cfg.Schedule.ScanCron == "" {
		cfg.Schedule.ScanCron = "0 30 17 * * 1-5"
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "rest", "mock":
	default:
		return fmt.Errorf("data_source.provider must be yahoo, rest or mock, got %q", c.DataSource.Provider)
	}
	if c.DataSource.Provider == "rest" && c.DataSource.BaseURL == "" {
		return fmt.Errorf("data_source.base_url is required for the rest provider")
	}
	if c.Scan.SMAFast <= 0 || c.Scan.SMASlow <= 0 {
		return fmt.Errorf("sma periods must be positive")
	}
	if c.Scan.SMAFast >= c.Scan.SMASlow {
		return fmt.Errorf("scan.sma_fast (%d) must be shorter than scan.sma_slow (%d)", c.Scan.SMAFast, c.Scan.SMASlow)
	}
	if c.Scan.RSIPeriod <= 0 {
		return fmt.Errorf("scan.rsi_period must be positive")
	}
	if c.Scan.RSIMin < 0 || c.Scan.RSIMax > 100 || c.Scan.RSIMin >= c.Scan.RSIMax {
		return fmt.Errorf("scan.rsi_min/rsi_max must satisfy 0 <= min < max <= 100")
	}
	if c.Scan.MinHistoryDays < c.Scan.SMASlow {
		return fmt.Errorf("scan.min_history_days (%d) must cover the slow SMA window (%d)", c.Scan.MinHistoryDays, c.Scan.SMASlow)
	}
	if c.Scan.PullbackTolerancePct <= 0 {
		return fmt.Errorf("scan.pullback_tolerance_pct must be positive")
	}
	if c.Scan.VolumeConfirmationRatio <= 1.0 {
		return fmt.Errorf("scan.volume_confirmation_ratio must exceed 1.0")
	}
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("scan.workers must be positive")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be positive")
	}
	return nil
}

// LoadWatchlist reads a symbols file, one ticker per line; blank lines
// and lines starting with '#' are ignored.
func LoadWatchlist(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	var symbols []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		symbols = append(symbols, line)
	}
	return symbols, nil
}
