package infra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"stx_nexus/internal/domain"

	"github.com/shopspring/decimal"
)

func newPriceServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestBinancePriceClient_FetchPrice(t *testing.T) {
	var gotSymbol string
	server := newPriceServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotSymbol = r.URL.Query().Get("symbol")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"50000.01000000"}`))
	})

	var updated decimal.Decimal
	client := NewBinancePriceClientWithConfig(func(p decimal.Decimal) { updated = p }, server.URL, "BTCUSDT", 1)

	if _, ok := client.CurrentPrice(); ok {
		t.Fatal("price should be unavailable before the first fetch")
	}

	if err := client.fetchPrice(context.Background()); err != nil {
		t.Fatalf("fetchPrice failed: %v", err)
	}

	price, ok := client.CurrentPrice()
	if !ok {
		t.Fatal("price should be available after fetch")
	}
	want := decimal.RequireFromString("50000.01")
	if !price.Equal(want) {
		t.Errorf("Expected price %s, got %s", want, price)
	}
	if !updated.Equal(want) {
		t.Errorf("onUpdate got %s, want %s", updated, want)
	}
	if gotSymbol != "BTCUSDT" {
		t.Errorf("symbol query = %q, want BTCUSDT", gotSymbol)
	}
}

func TestBinancePriceClient_FailureKeepsLastPrice(t *testing.T) {
	var fail atomic.Bool
	server := newPriceServer(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"42000"}`))
	})

	client := NewBinancePriceClientWithConfig(nil, server.URL, "", 1)
	if err := client.fetchPrice(context.Background()); err != nil {
		t.Fatalf("fetchPrice failed: %v", err)
	}

	fail.Store(true)
	if err := client.fetchPrice(context.Background()); err == nil {
		t.Fatal("expected error on 400")
	}

	price, ok := client.CurrentPrice()
	if !ok || !price.Equal(decimal.NewFromInt(42000)) {
		t.Errorf("price = %s (ok=%v), want last good 42000", price, ok)
	}
}

func TestBinancePriceClient_InvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `nope`},
		{"not a number", `{"symbol":"BTCUSDT","price":"abc"}`},
		{"zero price", `{"symbol":"BTCUSDT","price":"0"}`},
		{"negative price", `{"symbol":"BTCUSDT","price":"-1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := newPriceServer(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Write([]byte(tt.body))
			})

			client := NewBinancePriceClientWithConfig(nil, server.URL, "", 1)
			err := client.fetchPrice(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if domain.IsRetriable(err) {
				t.Error("decode errors should not be retriable")
			}
			if calls.Load() != 1 {
				t.Errorf("calls = %d, want 1 (no retry)", calls.Load())
			}
			if _, ok := client.CurrentPrice(); ok {
				t.Error("invalid payload must not produce a price")
			}
		})
	}
}

func TestBinancePriceClient_RetryOnFailure(t *testing.T) {
	var callCount atomic.Int32
	server := newPriceServer(t, func(w http.ResponseWriter, r *http.Request) {
		if callCount.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"61000.5"}`))
	})

	client := NewBinancePriceClientWithConfig(nil, server.URL, "", 1)
	client.retryDelay = time.Millisecond

	// Fetch price (should retry 2 times and succeed on 3rd)
	if err := client.fetchPrice(context.Background()); err != nil {
		t.Fatalf("fetchPrice should succeed after retries: %v", err)
	}
	if callCount.Load() != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount.Load())
	}
}

func waitForPrice(t *testing.T, feed domain.PriceFeed) decimal.Decimal {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p, ok := feed.CurrentPrice(); ok {
			return p
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("price never became available")
	return decimal.Zero
}

func TestBinancePriceClient_StartStop(t *testing.T) {
	var callCount atomic.Int32
	server := newPriceServer(t, func(w http.ResponseWriter, r *http.Request) {
		callCount.Add(1)
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"50000"}`))
	})

	client := NewBinancePriceClientWithConfig(nil, server.URL, "", 60)

	var errs atomic.Int32
	client.OnError(func(error) { errs.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Second start must not spawn another poller or fetch again
	if err := client.Start(ctx); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}

	waitForPrice(t, client)
	if callCount.Load() != 1 {
		t.Errorf("Expected exactly one initial call, got %d", callCount.Load())
	}

	// Stop should complete without hanging
	client.Stop()
	client.Stop()

	if errs.Load() != 0 {
		t.Errorf("unexpected error callbacks: %d", errs.Load())
	}
}

func TestBinancePriceClient_StartDoesNotBlockOnSlowFetch(t *testing.T) {
	release := make(chan struct{})
	server := newPriceServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	client := NewBinancePriceClientWithConfig(nil, server.URL, "", 60)

	begin := time.Now()
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if elapsed := time.Since(begin); elapsed > 500*time.Millisecond {
		t.Errorf("Start blocked for %v", elapsed)
	}

	begin = time.Now()
	client.Stop()
	if elapsed := time.Since(begin); elapsed > 2*time.Second {
		t.Errorf("Stop blocked for %v", elapsed)
	}
}

func TestBinancePriceClient_RestartAfterParentCancel(t *testing.T) {
	var callCount atomic.Int32
	server := newPriceServer(t, func(w http.ResponseWriter, r *http.Request) {
		callCount.Add(1)
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"50000"}`))
	})

	client := NewBinancePriceClientWithConfig(nil, server.URL, "", 60)

	ctx, cancel := context.WithCancel(context.Background())
	client.Start(ctx)
	waitForPrice(t, client)
	cancel()

	// Wait for the loop to notice the cancelled parent
	deadline := time.Now().Add(2 * time.Second)
	for {
		client.lifecycle.Lock()
		running := client.runningLocked()
		client.lifecycle.Unlock()
		if !running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("poller did not exit after parent cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	defer client.Stop()

	deadline = time.Now().Add(2 * time.Second)
	for callCount.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("restart did not fetch again, calls = %d", callCount.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
