package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	binanceWSURL       = "wss://stream.binance.com:9443/ws"
	streamMaxRetries   = 10
	streamReadTimeout  = 60 * time.Second
	streamDialTimeout  = 10 * time.Second
	binanceTickerEvent = "24hrTicker"
)

// binanceStreamTicker is the subset of the <symbol>@ticker payload we use.
// Reference: https://developers.binance.com/docs/binance-spot-api-docs/web-socket-streams
type binanceStreamTicker struct {
	EventType string `json:"e"` // 24hrTicker
	EventTime int64  `json:"E"` // ms
	Symbol    string `json:"s"` // BTCUSDT
	LastPrice string `json:"c"` // last price
}

// BinanceStreamWorker keeps the latest price from the Binance ticker websocket
type BinanceStreamWorker struct {
	baseURL      string
	symbol       string
	onUpdate     func(decimal.Decimal)
	onConnChange func(bool)

	conn      *websocket.Conn
	mu        sync.RWMutex
	price     decimal.Decimal
	connected bool

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewBinanceStreamWorker creates a worker for symbol (e.g. "BTCUSDT")
func NewBinanceStreamWorker(baseURL, symbol string, onUpdate func(decimal.Decimal)) *BinanceStreamWorker {
	if baseURL == "" {
		baseURL = binanceWSURL
	}
	if symbol == "" {
		symbol = defaultSymbol
	}
	return &BinanceStreamWorker{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		symbol:   symbol,
		onUpdate: onUpdate,
		price:    decimal.Zero,
	}
}

// OnConnectionChange sets a callback for connect/disconnect transitions
func (w *BinanceStreamWorker) OnConnectionChange(fn func(bool)) {
	w.onConnChange = fn
}

// Start starts the WebSocket connection with automatic reconnection.
// A second Start while running is a no-op.
func (w *BinanceStreamWorker) Start(ctx context.Context) error {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()
	if w.cancel != nil {
		return nil
	}

	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.connectionLoop(ctx)

	return nil
}

// connectionLoop handles connection and reconnection with exponential backoff
func (w *BinanceStreamWorker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Binance stream panic recovered", slog.Any("panic", r))
		}
	}()

	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("Binance stream loop stopped")
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("Binance stream connection failed",
				slog.Any("error", err),
				slog.Int("retry", retryCount),
			)

			delay := CalculateBackoff(retryCount)
			retryCount++
			if retryCount > streamMaxRetries {
				slog.Error("Binance stream max retries exceeded, resetting counter")
				retryCount = 0
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		// Connection successful, reset retry counter
		retryCount = 0

		// Read messages until error
		w.readLoop(ctx)
	}
}

func (w *BinanceStreamWorker) streamURL() string {
	return fmt.Sprintf("%s/%s@ticker", w.baseURL, strings.ToLower(w.symbol))
}

// connect establishes the WebSocket connection
func (w *BinanceStreamWorker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: streamDialTimeout,
	}

	header := make(http.Header)
	header.Add("User-Agent", DefaultUserAgent)

	conn, _, err := dialer.DialContext(ctx, w.streamURL(), header)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()

	// Stop may have run between dial and store
	if ctx.Err() != nil {
		w.closeConnection()
		return ctx.Err()
	}
	w.notifyConn(true)

	slog.Info("Binance WebSocket connected", slog.String("symbol", w.symbol))
	return nil
}

// readLoop reads messages from WebSocket
func (w *BinanceStreamWorker) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.closeConnection()
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()

		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(streamReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Binance WebSocket read error", slog.Any("error", err))
			}
			w.closeConnection()
			return
		}

		w.handleMessage(message)
	}
}

// handleMessage parses a ticker message and stores the last price
func (w *BinanceStreamWorker) handleMessage(message []byte) {
	var msg binanceStreamTicker
	if err := json.Unmarshal(message, &msg); err != nil {
		slog.Debug("Binance message parse error", slog.Any("error", err))
		return
	}

	if msg.EventType != binanceTickerEvent || !strings.EqualFold(msg.Symbol, w.symbol) {
		return
	}

	price, err := decimal.NewFromString(msg.LastPrice)
	if err != nil || !price.IsPositive() {
		slog.Debug("Binance message has no usable price", slog.String("price", msg.LastPrice))
		return
	}

	w.mu.Lock()
	changed := !w.price.Equal(price)
	w.price = price
	w.mu.Unlock()

	if changed && w.onUpdate != nil {
		w.onUpdate(price)
	}
}

// closeConnection safely closes the WebSocket connection
func (w *BinanceStreamWorker) closeConnection() {
	w.mu.Lock()
	wasConnected := w.connected
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.connected = false
	w.mu.Unlock()

	if wasConnected {
		w.notifyConn(false)
	}
}

func (w *BinanceStreamWorker) notifyConn(connected bool) {
	if w.onConnChange != nil {
		w.onConnChange(connected)
	}
}

// Stop closes the WebSocket connection and waits for the loop to exit.
// Closing the connection unblocks a pending read.
func (w *BinanceStreamWorker) Stop() {
	w.lifecycle.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	w.closeConnection()
	w.wg.Wait()
	slog.Info("Binance WebSocket disconnected")
}

// IsConnected returns connection status
func (w *BinanceStreamWorker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// CurrentPrice returns the last price received on the stream
func (w *BinanceStreamWorker) CurrentPrice() (decimal.Decimal, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.price, w.price.IsPositive()
}
