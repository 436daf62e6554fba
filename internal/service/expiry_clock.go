package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTickInterval is one second of wall-clock time per countdown step.
const DefaultTickInterval = time.Second

// Ticker is the part of the registry driven by the clock.
type Ticker interface {
	Tick() []string
}

// ExpiryClock drives the per-second countdown of pending orders.
// Start is idempotent while running; Stop cancels and waits for the loop.
type ExpiryClock struct {
	target   Ticker
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewExpiryClock creates a clock ticking target every interval.
// A non-positive interval uses DefaultTickInterval.
func NewExpiryClock(target Ticker, interval time.Duration) *ExpiryClock {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &ExpiryClock{target: target, interval: interval}
}

// Start launches the tick loop. Calling Start on a running clock does nothing,
// so there is never more than one tick stream.
func (c *ExpiryClock) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runningLocked() {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go c.run(ctx, done)
	return nil
}

func (c *ExpiryClock) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Expiry clock panic recovered", slog.Any("panic", r))
		}
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Expiry clock stopped")
			return
		case <-ticker.C:
			for _, id := range c.target.Tick() {
				slog.Info("Order countdown reached zero", slog.String("id", id))
			}
		}
	}
}

// Stop cancels the loop and waits for it to exit. Safe to call more than once.
func (c *ExpiryClock) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Interval returns the time between ticks.
func (c *ExpiryClock) Interval() time.Duration {
	return c.interval
}

// IsRunning reports whether the tick loop is active.
func (c *ExpiryClock) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runningLocked()
}

func (c *ExpiryClock) runningLocked() bool {
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
