// Package common provides shared utilities for Startrade
package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for Startrade
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Ledger      LedgerConfig    `toml:"ledger"`
	PriceFeed   PriceFeedConfig `toml:"pricefeed"`
	Auth        AuthConfig      `toml:"auth"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	RateLimit   float64  `toml:"rate_limit"`   // requests per second per client on mutating endpoints
	RateBurst   int      `toml:"rate_burst"`   // burst allowance for the rate limiter
	CORSOrigins []string `toml:"cors_origins"` // allowed origins for the Mini App front-end
}

// StorageConfig selects and configures the portfolio store backend.
type StorageConfig struct {
	Backend string `toml:"backend"` // "badger" (default) or "memory"
	Path    string `toml:"path"`    // data directory for the badger backend
}

// LedgerConfig holds portfolio ledger configuration.
type LedgerConfig struct {
	StartingBalance string `toml:"starting_balance"` // seeded cash for new portfolios, USD
}

// GetStartingBalance parses the seeded cash balance, defaulting to $1000.
func (c *LedgerConfig) GetStartingBalance() decimal.Decimal {
	d, err := decimal.NewFromString(c.StartingBalance)
	if err != nil || d.IsNegative() {
		return decimal.NewFromInt(1000)
	}
	return d
}

// PriceFeedConfig holds price feed simulator configuration.
type PriceFeedConfig struct {
	Interval   string `toml:"interval"`    // tick interval, duration string
	HistoryCap int    `toml:"history_cap"` // max retained price points per asset
}

// GetInterval parses and returns the tick interval duration.
func (c *PriceFeedConfig) GetInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// AuthConfig holds Telegram and JWT session configuration.
type AuthConfig struct {
	BotToken    string `toml:"bot_token"`    // Telegram bot token used to validate WebApp initData
	JWTSecret   string `toml:"jwt_secret"`   // HMAC secret for session tokens
	TokenExpiry string `toml:"token_expiry"` // duration string, default "24h"
	AllowDemo   bool   `toml:"allow_demo"`   // accept unauthenticated requests as the demo user
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			RateLimit: 5,
			RateBurst: 10,
		},
		Storage: StorageConfig{
			Backend: "badger",
			Path:    "data/portfolios",
		},
		Ledger: LedgerConfig{
			StartingBalance: "1000",
		},
		PriceFeed: PriceFeedConfig{
			Interval:   "5s",
			HistoryCap: 720,
		},
		Auth: AuthConfig{
			JWTSecret:   "dev-jwt-secret-change-in-production",
			TokenExpiry: "24h",
			AllowDemo:   true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STARTRADE_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("STARTRADE_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("STARTRADE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("STARTRADE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("STARTRADE_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if backend := os.Getenv("STARTRADE_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}

	if token := os.Getenv("STARTRADE_BOT_TOKEN"); token != "" {
		config.Auth.BotToken = token
	}

	if secret := os.Getenv("STARTRADE_JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
}
