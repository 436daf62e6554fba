package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"stx_nexus/internal/domain"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Price.Source != PriceSourceREST {
		t.Errorf("Source = %s, want rest", cfg.Price.Source)
	}
	if cfg.Price.PollIntervalSec != 60 {
		t.Errorf("PollIntervalSec = %d, want 60", cfg.Price.PollIntervalSec)
	}
	if cfg.Deposit.Addresses["TRC20"] == "" {
		t.Error("default TRC20 deposit address missing")
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api:
  listen_addr: "0.0.0.0:9000"
price:
  source: stream
  poll_interval_sec: 30
orders:
  tick_interval_ms: 10
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.API.ListenAddr != "0.0.0.0:9000" {
		t.Errorf("ListenAddr = %s", cfg.API.ListenAddr)
	}
	if cfg.Price.Source != PriceSourceStream || cfg.Price.PollIntervalSec != 30 {
		t.Errorf("Price = %+v", cfg.Price)
	}
	// Fields absent from the file keep their defaults
	if cfg.Price.Symbol != "BTCUSDT" {
		t.Errorf("Symbol = %s, want default BTCUSDT", cfg.Price.Symbol)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("STX_LISTEN_ADDR", "127.0.0.1:7000")
	t.Setenv("STX_PRICE_POLL_INTERVAL_SEC", "45")
	t.Setenv("STX_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.API.ListenAddr != "127.0.0.1:7000" {
		t.Errorf("ListenAddr = %s", cfg.API.ListenAddr)
	}
	if cfg.Price.PollIntervalSec != 45 {
		t.Errorf("PollIntervalSec = %d", cfg.Price.PollIntervalSec)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %s", cfg.Logging.Level)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad rest url", func(c *Config) { c.Price.RestURL = "ftp://x" }, "price.rest_url"},
		{"bad ws url", func(c *Config) { c.Price.Source = PriceSourceStream; c.Price.WSURL = "http://x" }, "price.ws_url"},
		{"unknown source", func(c *Config) { c.Price.Source = "carrier-pigeon" }, "price.source"},
		{"empty symbol", func(c *Config) { c.Price.Symbol = "" }, "price.symbol"},
		{"zero poll", func(c *Config) { c.Price.PollIntervalSec = 0 }, "price.poll_interval_sec"},
		{"no listen addr", func(c *Config) { c.API.ListenAddr = "" }, "api.listen_addr"},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			var cerr *domain.ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("error = %v, want ConfigError", err)
			}
			if cerr.Field != tt.field {
				t.Errorf("Field = %s, want %s", cerr.Field, tt.field)
			}
		})
	}
}
