package asset

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/orca-arbitrage-bot/internal/solana"
)

// Well-known mints on mainnet.
var (
	MintUSDC = solana.MustPublicKey("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	MintUSDT = solana.MustPublicKey("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	MintORCA = solana.MustPublicKey("orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE")
)

// Well-known Assets (pre-created instances)
var (
	SOL  = NewAssetWithName(NewAssetID(solana.WrappedSOLMint), "SOL", "Wrapped SOL", 9)
	USDC = NewAssetWithName(NewAssetID(MintUSDC), "USDC", "USD Coin", 6)
	USDT = NewAssetWithName(NewAssetID(MintUSDT), "USDT", "Tether USD", 6)
	ORCA = NewAssetWithName(NewAssetID(MintORCA), "ORCA", "Orca", 6)
)

// TokenSpec describes a token supplied by configuration.
type TokenSpec struct {
	Mint              string
	Symbol            string
	Decimals          uint8
	ReferencePriceSOL decimal.Decimal
}

// DefaultRegistry returns a registry pre-populated with well-known tokens.
// SOL is priced at exactly one SOL; the rest need a reference price.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(SOL)
	r.Register(USDC)
	r.Register(USDT)
	r.Register(ORCA)

	_ = r.SetReferencePrice(SOL.ID(), decimal.NewFromInt(1))

	return r
}

// NewRegistryFromSpecs extends DefaultRegistry with configured tokens.
func NewRegistryFromSpecs(specs []TokenSpec) (*Registry, error) {
	r := DefaultRegistry()

	for _, s := range specs {
		id, err := ParseAssetID(s.Mint)
		if err != nil {
			return nil, err
		}
		r.Register(NewAsset(id, s.Symbol, s.Decimals))
		if !s.ReferencePriceSOL.IsZero() {
			if err := r.SetReferencePrice(id, s.ReferencePriceSOL); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}
