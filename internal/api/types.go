package api

import (
	"stx_nexus/internal/domain"
	"stx_nexus/internal/service"
)

// CreateOrderRequest is the body of POST /api/v1/orders.
// The amount is a string to keep full decimal precision.
type CreateOrderRequest struct {
	WalletAddress string `json:"wallet_address"`
	Network       string `json:"network"`
	BTCAmount     string `json:"btc_amount"`
}

// OrderResponse is an order plus its display strings
type OrderResponse struct {
	domain.Order
	Display        domain.QuoteDisplay `json:"display"`
	TimeLeft       string              `json:"time_left"`
	Expired        bool                `json:"expired"`
	DepositAddress string              `json:"deposit_address,omitempty"`
}

// PriceResponse is returned by GET /api/v1/price
type PriceResponse struct {
	Symbol  string `json:"symbol"`
	Price   string `json:"price"`
	Display string `json:"display"`
}

// QuoteResponse is returned by GET /api/v1/quote
type QuoteResponse struct {
	Basis   string               `json:"basis"`
	Quote   *domain.Quote        `json:"quote,omitempty"`
	Display *domain.QuoteDisplay `json:"display,omitempty"`
	Amount  *domain.AmountQuote  `json:"amount_quote,omitempty"`
}

// NetworkInfo describes a network accepted for wallet addresses
type NetworkInfo struct {
	Network        string `json:"network"`
	DepositAddress string `json:"deposit_address,omitempty"`
}

// StatsResponse is returned by GET /api/v1/orders/stats
type StatsResponse struct {
	service.RegistryStats
	ArchivedByNetwork map[string]int64 `json:"archived_by_network,omitempty"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error string `json:"error"`
}
