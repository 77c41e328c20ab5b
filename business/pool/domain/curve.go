package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
)

// Curve is a pool's exchange-rate function.
type Curve interface {
	Name() string
	// Quote returns the output amount for amountIn of inputMint, fees included.
	Quote(pool PoolState, inputMint string, amountIn decimal.Decimal) (decimal.Decimal, error)
}

// NewCurve returns the curve registered under name.
func NewCurve(name string) (Curve, error) {
	switch name {
	case "spot":
		return SpotCurve{}, nil
	case "constant_product", "":
		return ConstantProductCurve{}, nil
	default:
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("unknown curve %q", name)))
	}
}

func checkQuote(pool PoolState, inputMint string, amountIn decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if !amountIn.IsPositive() {
		return decimal.Zero, decimal.Zero, apperror.New(apperror.CodeInvalidTradeSize,
			apperror.WithContext("amount in must be positive"))
	}
	in, out, ok := pool.Reserves(inputMint)
	if !ok {
		return decimal.Zero, decimal.Zero, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("%s is not traded by pool %s", inputMint, pool.ID)))
	}
	if !in.IsPositive() || !out.IsPositive() {
		return decimal.Zero, decimal.Zero, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext("pool "+pool.ID+" has an empty reserve"))
	}
	return in, out, nil
}

// SpotCurve prices at the current reserve ratio with no price impact:
// out = in * reserveOut / reserveIn * (1 - fee).
type SpotCurve struct{}

func (SpotCurve) Name() string { return "spot" }

func (SpotCurve) Quote(pool PoolState, inputMint string, amountIn decimal.Decimal) (decimal.Decimal, error) {
	in, out, err := checkQuote(pool, inputMint, amountIn)
	if err != nil {
		return decimal.Zero, err
	}
	return amountIn.Mul(out).Div(in).Mul(decimal.NewFromInt(1).Sub(pool.FeeRate)), nil
}

// ConstantProductCurve is the x*y=k invariant with the fee taken from the input:
// out = reserveOut * in' / (reserveIn + in'), in' = in * (1 - fee).
type ConstantProductCurve struct{}

func (ConstantProductCurve) Name() string { return "constant_product" }

func (ConstantProductCurve) Quote(pool PoolState, inputMint string, amountIn decimal.Decimal) (decimal.Decimal, error) {
	in, out, err := checkQuote(pool, inputMint, amountIn)
	if err != nil {
		return decimal.Zero, err
	}
	net := amountIn.Mul(decimal.NewFromInt(1).Sub(pool.FeeRate))
	return out.Mul(net).Div(in.Add(net)), nil
}
