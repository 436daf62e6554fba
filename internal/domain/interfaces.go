package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PriceFeed supplies the latest BTCUSDT price.
// ok is false until a fetch has succeeded; a failed refresh never replaces a good price.
type PriceFeed interface {
	CurrentPrice() (price decimal.Decimal, ok bool)
}

// PriceWorker is a PriceFeed that refreshes itself in the background
type PriceWorker interface {
	PriceFeed
	Start(ctx context.Context) error
	Stop()
}

// AddressValidator decides whether a wallet address is acceptable for a network
type AddressValidator interface {
	IsValid(address, network string) bool
}

// Clock stamps creation and completion times
type Clock interface {
	Now() time.Time
}

// OrderArchive keeps an audit copy of completed orders.
// It is write-only from the registry's point of view; state is never restored from it.
type OrderArchive interface {
	SaveCompleted(o *Order) error
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns the current local time
func (SystemClock) Now() time.Time { return time.Now() }
