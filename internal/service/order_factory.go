package service

import (
	"fmt"
	"strings"

	"stx_nexus/internal/domain"

	"github.com/shopspring/decimal"
)

// OrderFactory builds new orders from user input and a price snapshot.
// It does not own the sequence counter: callers pass the next number in
// and get the following one back.
type OrderFactory struct {
	validator domain.AddressValidator
	clock     domain.Clock
}

// NewOrderFactory creates a factory. A nil clock falls back to the system clock.
func NewOrderFactory(validator domain.AddressValidator, clock domain.Clock) *OrderFactory {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &OrderFactory{validator: validator, clock: clock}
}

// Create validates the request and returns a pending order stamped with seq,
// together with seq+1. On error seq is returned unchanged.
func (f *OrderFactory) Create(req domain.OrderRequest, currentPrice decimal.Decimal, seq uint64) (*domain.Order, uint64, error) {
	wallet := strings.TrimSpace(req.WalletAddress)
	network := strings.TrimSpace(req.Network)

	if wallet == "" {
		return nil, seq, fmt.Errorf("%w: wallet address is required", domain.ErrInvalidAddress)
	}
	if network == "" {
		return nil, seq, fmt.Errorf("%w: network is required", domain.ErrInvalidAddress)
	}
	if f.validator != nil && !f.validator.IsValid(wallet, network) {
		return nil, seq, fmt.Errorf("%w: %s is not a valid %s address", domain.ErrInvalidAddress, wallet, network)
	}
	if !req.BTCAmount.IsPositive() {
		return nil, seq, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, req.BTCAmount.String())
	}
	if !currentPrice.IsPositive() {
		return nil, seq, domain.ErrPriceUnavailable
	}

	q := domain.CalculateQuote(req.BTCAmount, currentPrice)

	order := &domain.Order{
		ID:                  domain.FormatOrderID(seq),
		BTCAmount:           req.BTCAmount,
		PriceAtCreation:     currentPrice,
		Discount:            q.Discount,
		AmountAfterDiscount: q.AmountAfterDiscount,
		PlatformFee:         q.PlatformFee,
		TotalToTransfer:     q.TotalToTransfer,
		WalletAddress:       wallet,
		Network:             strings.ToUpper(network),
		RemainingSeconds:    domain.OrderLifetimeSeconds,
		CreatedAt:           f.clock.Now(),
		Status:              domain.OrderStatusPending,
	}

	return order, seq + 1, nil
}
