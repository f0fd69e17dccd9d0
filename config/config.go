package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// ServerConfig contains the HTTP listener and token settings
type ServerConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	JWTSecret string `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty"`
	TokenTTL  string `json:"token_ttl" yaml:"token_ttl"` // e.g. "24h"
}

// ParseTokenTTL converts the token ttl string to time.Duration
func (s ServerConfig) ParseTokenTTL() (time.Duration, error) {
	if s.TokenTTL == "" {
		return 0, nil
	}
	return time.ParseDuration(s.TokenTTL)
}

// StorageConfig locates the SQLite database
type StorageConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// DataConfig selects the price vendor and its credentials
type DataConfig struct {
	Vendor          string `json:"vendor" yaml:"vendor"` // "alpaca" or "alphavantage"
	AlpacaKey       string `json:"alpaca_key,omitempty" yaml:"alpaca_key,omitempty"`
	AlpacaSecret    string `json:"alpaca_secret,omitempty" yaml:"alpaca_secret,omitempty"`
	AlpacaDataURL   string `json:"alpaca_data_url,omitempty" yaml:"alpaca_data_url,omitempty"`
	AlphaVantageKey string `json:"alphavantage_key,omitempty" yaml:"alphavantage_key,omitempty"`
}

// BacktestConfig contains run and optimization defaults
type BacktestConfig struct {
	Cash           float64 `json:"cash" yaml:"cash"`
	Commission     float64 `json:"commission" yaml:"commission"`
	MinTrades      int     `json:"min_trades" yaml:"min_trades"`
	Parallelism    int     `json:"parallelism" yaml:"parallelism"`
	OptimizeMarker string  `json:"optimize_marker" yaml:"optimize_marker"`
	Objective      string  `json:"objective" yaml:"objective"`
}

// LoggingConfig contains zerolog settings
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "json" or "console"
}

// Load reads path (when non-empty) over the defaults, loads .env files and
// applies environment overrides, then validates.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads the named files, or ./.env when none are given. A
// missing file is not an error; variables already set win.
func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.decodeFile(path); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, c); err != nil {
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding fields when they are set.
func applyEnvOverrides(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	str("STRATLAB_ADDR", &cfg.Server.Addr)
	str("JWT_SECRET", &cfg.Server.JWTSecret)
	str("STRATLAB_DB_PATH", &cfg.Storage.DBPath)
	str("STRATLAB_VENDOR", &cfg.Data.Vendor)
	str("APCA_API_KEY_ID", &cfg.Data.AlpacaKey)
	str("APCA_API_SECRET_KEY", &cfg.Data.AlpacaSecret)
	str("APCA_API_DATA_URL", &cfg.Data.AlpacaDataURL)
	str("ALPHAVANTAGE_KEY", &cfg.Data.AlphaVantageKey)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)

	if v := os.Getenv("STRATLAB_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backtest.Parallelism = n
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if _, err := c.Server.ParseTokenTTL(); err != nil {
		return fmt.Errorf("server.token_ttl: %w", err)
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Data.Vendor != "alpaca" && c.Data.Vendor != "alphavantage" {
		return fmt.Errorf("data.vendor must be 'alpaca' or 'alphavantage'")
	}
	if c.Backtest.Cash <= 0 {
		return fmt.Errorf("backtest.cash must be positive")
	}
	if c.Backtest.Commission < 0 || c.Backtest.Commission >= 1 {
		return fmt.Errorf("backtest.commission must be in [0, 1)")
	}
	if c.Backtest.MinTrades < 1 {
		return fmt.Errorf("backtest.min_trades must be at least 1")
	}
	if c.Backtest.Parallelism < 0 {
		return fmt.Errorf("backtest.parallelism must not be negative")
	}
	if c.Backtest.OptimizeMarker == "" {
		return fmt.Errorf("backtest.optimize_marker is required")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:     ":8080",
			TokenTTL: "24h",
		},
		Storage: StorageConfig{
			DBPath: "./stratlab.db",
		},
		Data: DataConfig{
			Vendor: "alpaca",
		},
		Backtest: BacktestConfig{
			Cash:           10000,
			Commission:     0.002,
			MinTrades:      2,
			OptimizeMarker: "_opt",
			Objective:      "equity_final",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
