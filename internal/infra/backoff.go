package infra

import (
	"time"
)

// Backoff doubles Base on every retry up to Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// streamBackoff paces websocket reconnects: 1s, 2s, 4s ... 60s.
var streamBackoff = Backoff{Base: 1 * time.Second, Max: 60 * time.Second}

// Delay returns Base * 2^retry capped at Max. A negative retry yields Base.
func (b Backoff) Delay(retry int) time.Duration {
	if retry < 0 {
		return b.Base
	}
	// 2^30 seconds is far past any sane cap
	if retry > 30 {
		return b.Max
	}

	d := b.Base * time.Duration(1<<retry)
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// CalculateBackoff returns the reconnect delay for the price stream.
func CalculateBackoff(retryCount int) time.Duration {
	return streamBackoff.Delay(retryCount)
}
