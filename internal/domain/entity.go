package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderRecord is the archived form of a completed order
type OrderRecord struct {
	ID                  string          `gorm:"primaryKey" json:"id"`
	BTCAmount           decimal.Decimal `gorm:"type:text" json:"btc_amount"`
	PriceAtCreation     decimal.Decimal `gorm:"type:text" json:"price_at_creation"`
	Discount            decimal.Decimal `gorm:"type:text" json:"discount"`
	AmountAfterDiscount decimal.Decimal `gorm:"type:text" json:"amount_after_discount"`
	PlatformFee         decimal.Decimal `gorm:"type:text" json:"platform_fee"`
	TotalToTransfer     decimal.Decimal `gorm:"type:text" json:"total_to_transfer"`
	WalletAddress       string          `json:"wallet_address"`
	Network             string          `json:"network" gorm:"index"`
	Status              OrderStatus     `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	CompletedAt         time.Time       `json:"completed_at" gorm:"index"`
}

// NewOrderRecord copies an order into its archive form
func NewOrderRecord(o *Order) *OrderRecord {
	return &OrderRecord{
		ID:                  o.ID,
		BTCAmount:           o.BTCAmount,
		PriceAtCreation:     o.PriceAtCreation,
		Discount:            o.Discount,
		AmountAfterDiscount: o.AmountAfterDiscount,
		PlatformFee:         o.PlatformFee,
		TotalToTransfer:     o.TotalToTransfer,
		WalletAddress:       o.WalletAddress,
		Network:             o.Network,
		Status:              o.Status,
		CreatedAt:           o.CreatedAt,
		CompletedAt:         o.CompletedAt,
	}
}
