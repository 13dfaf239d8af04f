package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string         `yaml:"database_url"`
	Redis       RedisConfig    `yaml:"redis"`
	Scraper     ScraperConfig  `yaml:"scraper"`
	Matching    MatchingConfig `yaml:"matching"`
	Arbitrage   ArbConfig      `yaml:"arbitrage"`
	Telegram    TelegramConfig `yaml:"telegram"`
	LogLevel    string         `yaml:"log_level"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ScraperConfig struct {
	ScrapeIntervalSeconds float64 `yaml:"scrape_interval_seconds"`
	RequestTimeoutSeconds float64 `yaml:"request_timeout_seconds"`
	MaxConcurrentRequests int     `yaml:"max_concurrent_requests"`
	EnableOddsHistory     bool    `yaml:"enable_odds_history"`
	HistoryRetentionDays  int     `yaml:"history_retention_days"`
}

type MatchingConfig struct {
	// TimeWindowMinutes is the fallback matching window when no
	// sport-specific window applies.
	TimeWindowMinutes   int     `yaml:"match_time_window_minutes"`
	SimilarityThreshold float64 `yaml:"match_similarity_threshold"`
}

type ArbConfig struct {
	MinProfitPercentage float64 `yaml:"min_profit_percentage"`
	DedupHours          int     `yaml:"arbitrage_dedup_hours"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

func (c *ScraperConfig) Interval() time.Duration {
	return time.Duration(c.ScrapeIntervalSeconds * float64(time.Second))
}

func (c *ScraperConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds * float64(time.Second))
}

// Load reads the YAML config, applies defaults and environment overrides.
// A missing file is not an error when the path is empty: defaults plus
// environment are enough to boot against a local database.
func Load(configPath string) (*Config, error) {
	config := defaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(config)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func defaults() *Config {
	return &Config{
		Scraper: ScraperConfig{
			ScrapeIntervalSeconds: 2.0,
			RequestTimeoutSeconds: 30.0,
			MaxConcurrentRequests: 10,
			EnableOddsHistory:     true,
			HistoryRetentionDays:  7,
		},
		Matching: MatchingConfig{
			TimeWindowMinutes:   120,
			SimilarityThreshold: 75.0,
		},
		Arbitrage: ArbConfig{
			MinProfitPercentage: 1.0,
			DedupHours:          24,
		},
		LogLevel: "info",
	}
}

// applyEnv overlays secrets and connection strings from the environment so
// they stay out of the YAML file. A .env file is honored when present.
func applyEnv(c *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
}

// validate rejects configurations that cannot run. Config errors are fatal
// at boot and never mid-run.
func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required (config file or DATABASE_URL)")
	}
	if c.Scraper.ScrapeIntervalSeconds <= 0 {
		return fmt.Errorf("scrape_interval_seconds must be positive")
	}
	if c.Scraper.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("max_concurrent_requests must be positive")
	}
	if c.Matching.SimilarityThreshold <= 0 || c.Matching.SimilarityThreshold > 100 {
		return fmt.Errorf("match_similarity_threshold must be in (0, 100]")
	}
	return nil
}
