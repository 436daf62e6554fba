package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// OrderIDPrefix is prepended to the sequence number of every order.
	OrderIDPrefix = "STX"

	// FirstSequence is the sequence number of the first order of a session.
	FirstSequence uint64 = 109

	// OrderLifetimeSeconds is the advisory countdown of a pending order (120 minutes).
	OrderLifetimeSeconds = 7200
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusCompleted OrderStatus = "Completed"
)

// OrderRequest carries the user input for a new order.
type OrderRequest struct {
	WalletAddress string
	Network       string
	BTCAmount     decimal.Decimal
}

// Order represents a single BTC-to-USDT conversion request.
// Pricing terms are frozen at creation; only Status, RemainingSeconds and
// CompletedAt change afterwards.
type Order struct {
	ID                  string          `json:"id"`
	BTCAmount           decimal.Decimal `json:"btc_amount"`
	PriceAtCreation     decimal.Decimal `json:"price_at_creation"`
	Discount            decimal.Decimal `json:"discount"`
	AmountAfterDiscount decimal.Decimal `json:"amount_after_discount"`
	PlatformFee         decimal.Decimal `json:"platform_fee"`
	TotalToTransfer     decimal.Decimal `json:"total_to_transfer"`
	WalletAddress       string          `json:"wallet_address"`
	Network             string          `json:"network"`
	RemainingSeconds    int             `json:"remaining_seconds"`
	CreatedAt           time.Time       `json:"created_at"`
	CompletedAt         time.Time       `json:"completed_at,omitempty"`
	Status              OrderStatus     `json:"status"`
}

// FormatOrderID builds the public id for a sequence number.
func FormatOrderID(seq uint64) string {
	return fmt.Sprintf("%s%d", OrderIDPrefix, seq)
}

// ParseOrderID extracts the sequence number from an "STX<n>" id.
func ParseOrderID(id string) (uint64, bool) {
	digits, ok := strings.CutPrefix(id, OrderIDPrefix)
	if !ok || digits == "" {
		return 0, false
	}
	seq, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

// IsPending checks if the order still awaits payment.
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// IsExpired reports whether the advisory countdown has run out.
// An expired order is still pending.
func (o *Order) IsExpired() bool {
	return o.RemainingSeconds <= 0
}

// Quote returns the frozen pricing terms of the order.
func (o *Order) Quote() Quote {
	return Quote{
		Price:               o.PriceAtCreation,
		Discount:            o.Discount,
		AmountAfterDiscount: o.AmountAfterDiscount,
		PlatformFee:         o.PlatformFee,
		TotalToTransfer:     o.TotalToTransfer,
	}
}

// TimeLeft renders the countdown as "m:ss".
func (o *Order) TimeLeft() string {
	return FormatRemaining(o.RemainingSeconds)
}

// FormatRemaining renders seconds as minutes and zero-padded seconds, e.g. 7200 -> "120:00".
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
