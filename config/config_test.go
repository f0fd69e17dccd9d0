package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, 10000.0, cfg.Backtest.Cash)
	assert.Equal(t, 0.002, cfg.Backtest.Commission)
	assert.Equal(t, 2, cfg.Backtest.MinTrades)
	assert.Equal(t, "_opt", cfg.Backtest.OptimizeMarker)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing addr",
			mutate:  func(c *Config) { c.Server.Addr = "" },
			wantErr: true,
			errMsg:  "server.addr is required",
		},
		{
			name:    "bad token ttl",
			mutate:  func(c *Config) { c.Server.TokenTTL = "soon" },
			wantErr: true,
			errMsg:  "server.token_ttl",
		},
		{
			name:    "missing db path",
			mutate:  func(c *Config) { c.Storage.DBPath = "" },
			wantErr: true,
			errMsg:  "storage.db_path is required",
		},
		{
			name:    "unknown vendor",
			mutate:  func(c *Config) { c.Data.Vendor = "yahoo" },
			wantErr: true,
			errMsg:  "data.vendor",
		},
		{
			name:    "negative cash",
			mutate:  func(c *Config) { c.Backtest.Cash = -1 },
			wantErr: true,
			errMsg:  "backtest.cash must be positive",
		},
		{
			name:    "commission out of range",
			mutate:  func(c *Config) { c.Backtest.Commission = 1 },
			wantErr: true,
			errMsg:  "backtest.commission",
		},
		{
			name:    "zero min trades",
			mutate:  func(c *Config) { c.Backtest.MinTrades = 0 },
			wantErr: true,
			errMsg:  "backtest.min_trades",
		},
		{
			name:    "empty marker",
			mutate:  func(c *Config) { c.Backtest.OptimizeMarker = "" },
			wantErr: true,
			errMsg:  "backtest.optimize_marker",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
			errMsg:  "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Data.Vendor = "alphavantage"
			cfg.Backtest.Parallelism = 3
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))
			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadFromFile_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  db_path: /tmp/x.db\n"), 0600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.DBPath)
	assert.Equal(t, 10000.0, cfg.Backtest.Cash)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("::: not [valid"), 0600))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { os.Unsetenv("ALPHAVANTAGE_KEY") })
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("ALPHAVANTAGE_KEY=from-dotenv\nLOG_LEVEL=warn\n"), 0600))

	t.Setenv("STRATLAB_DB_PATH", filepath.Join(dir, "env.db"))
	t.Setenv("APCA_API_KEY_ID", "key")
	t.Setenv("APCA_API_SECRET_KEY", "secret")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STRATLAB_PARALLELISM", "4")

	cfg, err := Load("", envFile)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "env.db"), cfg.Storage.DBPath)
	assert.Equal(t, "key", cfg.Data.AlpacaKey)
	assert.Equal(t, "secret", cfg.Data.AlpacaSecret)
	assert.Equal(t, "from-dotenv", cfg.Data.AlphaVantageKey)
	assert.Equal(t, "debug", cfg.Logging.Level, "process env wins over .env")
	assert.Equal(t, 4, cfg.Backtest.Parallelism)
}

func TestLoad_MissingDotEnvIsFine(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestParseTokenTTL(t *testing.T) {
	tests := []struct {
		ttl      string
		expected string
		wantErr  bool
	}{
		{"24h", "24h0m0s", false},
		{"30m", "30m0s", false},
		{"", "0s", false},
		{"invalid", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ttl, func(t *testing.T) {
			d, err := ServerConfig{TokenTTL: tt.ttl}.ParseTokenTTL()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, d.String())
			}
		})
	}
}
