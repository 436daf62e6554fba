package service

import (
	"sync"
	"time"

	"stx_nexus/internal/domain"

	"github.com/shopspring/decimal"
)

type stubFeed struct {
	mu    sync.Mutex
	price decimal.Decimal
	ok    bool
}

func newStubFeed(price string) *stubFeed {
	if price == "" {
		return &stubFeed{}
	}
	return &stubFeed{price: decimal.RequireFromString(price), ok: true}
}

func (f *stubFeed) CurrentPrice() (decimal.Decimal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.price, f.ok
}

func (f *stubFeed) set(price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price = decimal.RequireFromString(price)
	f.ok = true
}

type stubValidator struct{ valid bool }

func (v stubValidator) IsValid(address, network string) bool { return v.valid }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testTime = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func newTestRegistry(price string) (*OrderRegistry, *stubFeed) {
	feed := newStubFeed(price)
	factory := NewOrderFactory(stubValidator{valid: true}, fixedClock{t: testTime})
	return NewOrderRegistry(factory, feed), feed
}

func validRequest() domain.OrderRequest {
	return domain.OrderRequest{
		WalletAddress: "0xBdaB0e3B02072660B570896C0771F3e707d09893",
		Network:       "BEP20",
		BTCAmount:     decimal.NewFromInt(1),
	}
}
