package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// DiscountRate is taken off the market price (6%).
	DiscountRate = decimal.RequireFromString("0.06")

	// PlatformFeeRate is charged on the discounted amount (3%).
	PlatformFeeRate = decimal.RequireFromString("0.03")

	// displayPlaces is the number of decimals used when rendering amounts.
	displayPlaces int32 = 2
)

// Quote holds the derived amounts for one order at a given price.
// Values keep full precision; rounding happens in Display only.
type Quote struct {
	Price               decimal.Decimal `json:"price"`
	Discount            decimal.Decimal `json:"discount"`
	AmountAfterDiscount decimal.Decimal `json:"amount_after_discount"`
	PlatformFee         decimal.Decimal `json:"platform_fee"`
	TotalToTransfer     decimal.Decimal `json:"total_to_transfer"`
}

// QuoteDisplay is the two-decimal rendering of a Quote.
type QuoteDisplay struct {
	Price               string `json:"price"`
	Discount            string `json:"discount"`
	AmountAfterDiscount string `json:"amount_after_discount"`
	PlatformFee         string `json:"platform_fee"`
	TotalToTransfer     string `json:"total_to_transfer"`
}

// CalculateQuote applies the discount and platform fee to the price.
// The BTC amount does not enter the formula; it is kept on the order for reference.
// Inputs are assumed validated by the caller.
func CalculateQuote(btcAmount, price decimal.Decimal) Quote {
	discount := price.Mul(DiscountRate)
	afterDiscount := price.Sub(discount)
	fee := afterDiscount.Mul(PlatformFeeRate)

	return Quote{
		Price:               price,
		Discount:            discount,
		AmountAfterDiscount: afterDiscount,
		PlatformFee:         fee,
		TotalToTransfer:     afterDiscount.Add(fee),
	}
}

// Display rounds every amount to two decimal places.
func (q Quote) Display() QuoteDisplay {
	return QuoteDisplay{
		Price:               q.Price.StringFixed(displayPlaces),
		Discount:            q.Discount.StringFixed(displayPlaces),
		AmountAfterDiscount: q.AmountAfterDiscount.StringFixed(displayPlaces),
		PlatformFee:         q.PlatformFee.StringFixed(displayPlaces),
		TotalToTransfer:     q.TotalToTransfer.StringFixed(displayPlaces),
	}
}

// AmountQuote is the preview used by the amount-based form:
// the discount applies to the BTC amount before converting at price.
type AmountQuote struct {
	BTCAmount     decimal.Decimal `json:"btc_amount"`
	Price         decimal.Decimal `json:"price"`
	DiscountedBTC decimal.Decimal `json:"discounted_btc"`
	TotalUSDT     decimal.Decimal `json:"total_usdt"`
	PlatformFee   decimal.Decimal `json:"platform_fee"`
}

// CalculateAmountQuote computes the amount-based preview.
// It is never used to price an order.
func CalculateAmountQuote(btcAmount, price decimal.Decimal) AmountQuote {
	discounted := btcAmount.Mul(decimal.NewFromInt(1).Sub(DiscountRate))
	total := discounted.Mul(price)

	return AmountQuote{
		BTCAmount:     btcAmount,
		Price:         price,
		DiscountedBTC: discounted,
		TotalUSDT:     total,
		PlatformFee:   total.Mul(PlatformFeeRate),
	}
}

const (
	// MaxAmountLength bounds the textual form of an amount.
	MaxAmountLength = 32

	// AmountDecimalPlaces is satoshi precision.
	AmountDecimalPlaces int32 = 8

	// amountMaxExponent keeps scientific notation from expanding to huge strings.
	amountMaxExponent int32 = 18
)

// MaxBTCAmount is the BTC supply cap.
var MaxBTCAmount = decimal.NewFromInt(21_000_000)

// ParseAmount parses a user supplied BTC amount.
// Unparseable, non-finite, non-positive, over-precise or out-of-range values
// fail with ErrInvalidAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	if len(s) > MaxAmountLength {
		return decimal.Zero, fmt.Errorf("%w: longer than %d characters", ErrInvalidAmount, MaxAmountLength)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	// Checked before anything renders or rounds d
	if exp := d.Exponent(); exp > amountMaxExponent || exp < -amountMaxExponent {
		return decimal.Zero, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, d.String())
	}
	if d.GreaterThan(MaxBTCAmount) {
		return decimal.Zero, fmt.Errorf("%w: %s exceeds %s BTC", ErrInvalidAmount, d.String(), MaxBTCAmount.String())
	}
	if !d.Equal(d.Truncate(AmountDecimalPlaces)) {
		return decimal.Zero, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, d.String(), AmountDecimalPlaces)
	}
	return d, nil
}
