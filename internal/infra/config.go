package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"stx_nexus/internal/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	PriceSourceREST   = "rest"
	PriceSourceStream = "stream"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 민감 내용을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		ListenAddr     string   `yaml:"listen_addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"api"`

	Price struct {
		Source          string `yaml:"source"` // "rest" or "stream"
		Symbol          string `yaml:"symbol"`
		RestURL         string `yaml:"rest_url"`
		WSURL           string `yaml:"ws_url"`
		PollIntervalSec int    `yaml:"poll_interval_sec"`
	} `yaml:"price"`

	// Deposit addresses shown to the user, keyed by network (BEP20, TRC20).
	Deposit struct {
		Addresses map[string]string `yaml:"addresses"`
	} `yaml:"deposit"`

	Storage struct {
		DSN string `yaml:"dsn"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "STX Nexus"
	cfg.App.Version = "0.1.0"
	cfg.API.ListenAddr = "localhost:8080"
	cfg.API.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Price.Source = PriceSourceREST
	cfg.Price.Symbol = "BTCUSDT"
	cfg.Price.RestURL = "https://api.binance.com/api/v3/ticker/price"
	cfg.Price.WSURL = "wss://stream.binance.com:9443/ws"
	cfg.Price.PollIntervalSec = 60
	cfg.Deposit.Addresses = map[string]string{
		"BEP20": "0xBdaB0e3B02072660B570896C0771F3e707d09893",
		"TRC20": "TS3o9rFnykg8AbnnWsiHmqcDeerC9wDfbw",
	}
	cfg.Storage.DSN = "file::memory:?cache=shared"
	cfg.Logging.Level = "info"
	cfg.Logging.File = "logs/stx.log"
	return &cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
// A missing file is not an error: defaults are used and then overridden by the environment.
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// keep defaults
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &domain.ConfigError{Field: path, Err: err}
		}
	}

	// 4원칙: 보안 우선 - 환경 변수 오버라이드 지원
	overrideWithEnv(cfg)

	// 5원칙: 설정 유효성 검사
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	switch c.Price.Source {
	case PriceSourceREST:
		if !hasPrefix(c.Price.RestURL, "http://") && !hasPrefix(c.Price.RestURL, "https://") {
			return &domain.ConfigError{Field: "price.rest_url", Err: fmt.Errorf("invalid URL: %q", c.Price.RestURL)}
		}
	case PriceSourceStream:
		if !hasPrefix(c.Price.WSURL, "ws://") && !hasPrefix(c.Price.WSURL, "wss://") {
			return &domain.ConfigError{Field: "price.ws_url", Err: fmt.Errorf("invalid URL: %q", c.Price.WSURL)}
		}
	default:
		return &domain.ConfigError{Field: "price.source", Err: fmt.Errorf("unknown source %q", c.Price.Source)}
	}

	if c.Price.Symbol == "" {
		return &domain.ConfigError{Field: "price.symbol", Err: errors.New("symbol is required")}
	}
	if c.Price.PollIntervalSec <= 0 {
		return &domain.ConfigError{Field: "price.poll_interval_sec", Err: errors.New("poll interval must be positive")}
	}
	if c.API.ListenAddr == "" {
		return &domain.ConfigError{Field: "api.listen_addr", Err: errors.New("listen address is required")}
	}

	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("STX_LISTEN_ADDR"); addr != "" {
		cfg.API.ListenAddr = addr
	}
	if origins := os.Getenv("STX_ALLOWED_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = strings.Split(origins, ",")
	}
	if src := os.Getenv("STX_PRICE_SOURCE"); src != "" {
		cfg.Price.Source = strings.ToLower(src)
	}
	if url := os.Getenv("STX_PRICE_REST_URL"); url != "" {
		cfg.Price.RestURL = url
	}
	if url := os.Getenv("STX_PRICE_WS_URL"); url != "" {
		cfg.Price.WSURL = url
	}
	if sec := os.Getenv("STX_PRICE_POLL_INTERVAL_SEC"); sec != "" {
		if n, err := strconv.Atoi(sec); err == nil {
			cfg.Price.PollIntervalSec = n
		}
	}
	if dsn := os.Getenv("STX_STORAGE_DSN"); dsn != "" {
		cfg.Storage.DSN = dsn
	}
	if level := os.Getenv("STX_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
