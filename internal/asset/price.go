package asset

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Price is the reference value of one token unit expressed in SOL.
type Price struct {
	asset     *Asset
	inSOL     decimal.Decimal
	timestamp time.Time
}

// NewPrice creates a reference price.
func NewPrice(a *Asset, inSOL decimal.Decimal, timestamp time.Time) Price {
	if a == nil {
		panic(ErrNilAsset)
	}
	if inSOL.IsNegative() {
		panic("asset: negative reference price")
	}
	return Price{asset: a, inSOL: inSOL, timestamp: timestamp}
}

// Asset returns the priced asset.
func (p Price) Asset() *Asset {
	return p.asset
}

// InSOL returns the value of one token unit in SOL.
func (p Price) InSOL() decimal.Decimal {
	return p.inSOL
}

// Timestamp returns when the price was set.
func (p Price) Timestamp() time.Time {
	return p.timestamp
}

// Value converts a quantity in token units into SOL.
func (p Price) Value(units decimal.Decimal) decimal.Decimal {
	return units.Mul(p.inSOL)
}

// Age returns how long ago the price was set.
func (p Price) Age(now time.Time) time.Duration {
	return now.Sub(p.timestamp)
}

// String returns "USDC=0.0066 SOL".
func (p Price) String() string {
	return fmt.Sprintf("%s=%s SOL", p.asset.Symbol(), p.inSOL.String())
}
