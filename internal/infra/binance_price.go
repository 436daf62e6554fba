package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"stx_nexus/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	binanceTickerURL   = "https://api.binance.com/api/v3/ticker/price"
	defaultSymbol      = "BTCUSDT"
	priceFetchAttempts = 3
)

// binanceTickerResponse represents the Binance ticker price response
// e.g. {"symbol":"BTCUSDT","price":"50000.00000000"}
type binanceTickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// BinancePriceClient polls the Binance REST ticker for the latest price
type BinancePriceClient struct {
	onUpdate     func(decimal.Decimal)
	onError      func(error)
	price        decimal.Decimal
	mu           sync.RWMutex
	pollInterval time.Duration
	retryDelay   time.Duration
	apiURL       string
	symbol       string
	httpClient   *http.Client

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewBinancePriceClient creates a new price client
func NewBinancePriceClient(onUpdate func(decimal.Decimal)) *BinancePriceClient {
	return &BinancePriceClient{
		onUpdate:     onUpdate,
		price:        decimal.Zero,
		pollInterval: 60 * time.Second, // Default: 1 minute
		retryDelay:   1 * time.Second,
		apiURL:       binanceTickerURL,
		symbol:       defaultSymbol,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewBinancePriceClientWithConfig creates a client with custom configuration
func NewBinancePriceClientWithConfig(onUpdate func(decimal.Decimal), apiURL, symbol string, pollIntervalSec int) *BinancePriceClient {
	client := NewBinancePriceClient(onUpdate)
	if apiURL != "" {
		client.apiURL = apiURL
	}
	if symbol != "" {
		client.symbol = symbol
	}
	if pollIntervalSec > 0 {
		client.pollInterval = time.Duration(pollIntervalSec) * time.Second
	}
	return client
}

// OnError sets a callback invoked after a refresh finally fails
func (c *BinancePriceClient) OnError(fn func(error)) {
	c.onError = fn
}

// Start begins polling for price updates. The first fetch runs in the
// background, so Start never blocks on the network. A second Start while
// running is a no-op; after Stop or a cancelled parent context the client can
// be started again.
func (c *BinancePriceClient) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.runningLocked() {
		return nil
	}

	// Create a cancellable context
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go c.poll(ctx, done)
	return nil
}

func (c *BinancePriceClient) poll(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Price polling panic recovered", slog.Any("panic", r))
		}
	}()

	// Fetch immediately on start
	if err := c.refresh(ctx); err != nil {
		slog.Warn("Initial price fetch failed", slog.Any("error", err))
		// Continue anyway - will retry on next tick
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Price polling stopped")
			return
		case <-ticker.C:
			if err := c.refresh(ctx); err != nil {
				slog.Warn("Price fetch failed", slog.Any("error", err))
			}
		}
	}
}

// runningLocked must be called with lifecycle held
func (c *BinancePriceClient) runningLocked() bool {
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *BinancePriceClient) refresh(ctx context.Context) error {
	err := c.fetchPrice(ctx)
	if err != nil && c.onError != nil {
		c.onError(err)
	}
	return err
}

// fetchPrice fetches the current price with retry logic.
// Only retriable errors are retried.
func (c *BinancePriceClient) fetchPrice(ctx context.Context) error {
	var lastErr error
	for i := 0; i < priceFetchAttempts; i++ {
		if i > 0 {
			// Exponential backoff: 1s, 2s
			delay := Backoff{Base: c.retryDelay}.Delay(i - 1)
			slog.Info("Retrying price fetch", slog.Int("attempt", i), slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := c.doFetch(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		slog.Warn("Price fetch attempt failed", slog.Int("attempt", i+1), slog.Any("error", err))
		if !domain.IsRetriable(err) {
			break
		}
	}
	return lastErr
}

func (c *BinancePriceClient) doFetch(ctx context.Context) error {
	endpoint, err := url.Parse(c.apiURL)
	if err != nil {
		return domain.NewFatalNetworkError("parse url", err)
	}
	q := endpoint.Query()
	q.Set("symbol", c.symbol)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return domain.NewFatalNetworkError("build request", err)
	}

	// Add browser-like User-Agent to avoid bot detection
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewNetworkError("fetch price", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return domain.NewNetworkError("fetch price", statusErr)
		}
		return domain.NewFatalNetworkError("fetch price", statusErr)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewNetworkError("read body", err)
	}

	var data binanceTickerResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return domain.NewFatalNetworkError("decode price", err)
	}

	newPrice, err := decimal.NewFromString(data.Price)
	if err != nil {
		return domain.NewFatalNetworkError("decode price", err)
	}
	if !newPrice.IsPositive() {
		return domain.NewFatalNetworkError("decode price", fmt.Errorf("non-positive price %s", newPrice))
	}

	c.store(newPrice)
	return nil
}

func (c *BinancePriceClient) store(newPrice decimal.Decimal) {
	c.mu.Lock()
	oldPrice := c.price
	c.price = newPrice
	c.mu.Unlock()

	// Notify if price changed
	if !oldPrice.Equal(newPrice) && c.onUpdate != nil {
		slog.Debug("Price updated",
			slog.String("symbol", c.symbol),
			slog.String("price", newPrice.String()),
			slog.String("old_price", oldPrice.String()),
		)
		c.onUpdate(newPrice)
	}
}

// Stop cancels polling and waits for an in-flight fetch to return.
// Safe to call more than once.
func (c *BinancePriceClient) Stop() {
	c.lifecycle.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// CurrentPrice returns the last successfully fetched price
func (c *BinancePriceClient) CurrentPrice() (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.price, c.price.IsPositive()
}
