package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stx_nexus/internal/domain"
	"stx_nexus/internal/service"

	"github.com/shopspring/decimal"
)

func writeConfig(t *testing.T, restURL string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
price:
  source: "rest"
  rest_url: %q
  poll_interval_sec: 60
storage:
  dsn: %q
orders:
  tick_interval_ms: 10
logging:
  level: "warn"
  file: %q
`, restURL, filepath.Join(dir, "archive.db"), filepath.Join(dir, "logs", "stx.log"))

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestBootstrap_OrderLifecycle(t *testing.T) {
	priceServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"50000.00"}`))
	}))
	defer priceServer.Close()

	b := NewBootstrap()
	if err := b.Initialize(writeConfig(t, priceServer.URL)); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer b.Shutdown()

	if !b.Expiry.IsRunning() {
		t.Error("expected countdown to be running")
	}
	if b.Expiry.Interval() != service.DefaultTickInterval {
		t.Errorf("countdown interval = %v, want %v", b.Expiry.Interval(), service.DefaultTickInterval)
	}

	// The first price fetch runs in the background
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := b.Feed.CurrentPrice(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("price never became available")
		}
		time.Sleep(5 * time.Millisecond)
	}

	order, err := b.Registry.Create(domain.OrderRequest{
		WalletAddress: "0xBdaB0e3B02072660B570896C0771F3e707d09893",
		Network:       "BEP20",
		BTCAmount:     decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if order.ID != "STX109" || !order.TotalToTransfer.Equal(decimal.NewFromInt(48410)) {
		t.Errorf("unexpected order: %s total=%s", order.ID, order.TotalToTransfer)
	}

	if _, err := b.Registry.Complete(order.ID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	// Completion hook runs synchronously, so the archive is already written
	rec, err := b.Storage.GetOrder(order.ID)
	if err != nil || rec == nil {
		t.Fatalf("expected archived order, got %v (err=%v)", rec, err)
	}
	if rec.Status != domain.OrderStatusCompleted {
		t.Errorf("archived status = %s", rec.Status)
	}
}

func TestBootstrap_StartBeforeInitialize(t *testing.T) {
	if err := NewBootstrap().Start(context.Background()); err == nil {
		t.Error("expected error when not initialized")
	}
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	if err := NewBootstrap().Initialize(writeConfig(t, "ftp://nowhere")); err == nil {
		t.Error("expected config validation error")
	}
}
