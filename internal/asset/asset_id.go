// Package asset provides a type-safe model for SPL token assets.
// Raw on-chain quantities use big.Int; decimal.Decimal is used at
// boundaries and for valuation in SOL.
package asset

import (
	"github.com/fd1az/orca-arbitrage-bot/internal/solana"
)

// AssetID uniquely identifies a token by its mint address.
// Native SOL is identified by the wrapped SOL mint.
type AssetID struct {
	mint solana.PublicKey
}

// NewAssetID creates an AssetID for a mint.
func NewAssetID(mint solana.PublicKey) AssetID {
	if mint.IsZero() {
		panic("asset: mint cannot be zero")
	}
	return AssetID{mint: mint}
}

// ParseAssetID parses a base58 mint address.
func ParseAssetID(mint string) (AssetID, error) {
	pk, err := solana.ParsePublicKey(mint)
	if err != nil {
		return AssetID{}, err
	}
	return AssetID{mint: pk}, nil
}

// Mint returns the mint address.
func (id AssetID) Mint() solana.PublicKey {
	return id.mint
}

// IsNative returns true for wrapped SOL.
func (id AssetID) IsNative() bool {
	return id.mint.Equals(solana.WrappedSOLMint)
}

// String returns the base58 mint.
func (id AssetID) String() string {
	return id.mint.String()
}

// Equals compares two AssetIDs for equality.
func (id AssetID) Equals(other AssetID) bool {
	return id.mint.Equals(other.mint)
}
