// Package orca reads Orca token-swap pools directly from their on-chain accounts.
package orca

import (
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/shopspring/decimal"

	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/solana"
)

// Token-swap account layout (version byte followed by SwapV1). The offsets
// mirror swapLayout field by field.
const (
	SwapAccountSize = 324

	offVersion       = 0
	offInitialized   = 1
	offBump          = 2
	offTokenProgram  = 3
	offTokenA        = 35
	offTokenB        = 67
	offPoolMint      = 99
	offMintA         = 131
	offMintB         = 163
	offFeeAccount    = 195
	offTradeFeeNum   = 227
	offTradeFeeDen   = 235
	offOwnerFeeNum   = 243
	offOwnerFeeDen   = 251
	offCurveType     = 291
	tokenAccountSize = 165
	offTokenMint     = 0
	offTokenOwner    = 32
	offTokenAmount   = 64
	mintAccountSize  = 82
	offMintDecimals  = 44
)

// SwapAccount is a decoded token-swap pool account.
type SwapAccount struct {
	Version           uint8
	Bump              uint8
	TokenProgram      solana.PublicKey
	VaultA            solana.PublicKey
	VaultB            solana.PublicKey
	PoolMint          solana.PublicKey
	MintA             solana.PublicKey
	MintB             solana.PublicKey
	FeeAccount        solana.PublicKey
	TradeFeeNumerator uint64
	TradeFeeDenom     uint64
	OwnerFeeNumerator uint64
	OwnerFeeDenom     uint64
	CurveType         uint8
}

// swapLayout is the borsh image of a token-swap pool account.
type swapLayout struct {
	Version                     uint8
	IsInitialized               uint8
	BumpSeed                    uint8
	TokenProgram                solana.PublicKey
	TokenA                      solana.PublicKey
	TokenB                      solana.PublicKey
	PoolMint                    solana.PublicKey
	TokenAMint                  solana.PublicKey
	TokenBMint                  solana.PublicKey
	PoolFeeAccount              solana.PublicKey
	TradeFeeNumerator           uint64
	TradeFeeDenominator         uint64
	OwnerTradeFeeNumerator      uint64
	OwnerTradeFeeDenominator    uint64
	OwnerWithdrawFeeNumerator   uint64
	OwnerWithdrawFeeDenominator uint64
	HostFeeNumerator            uint64
	HostFeeDenominator          uint64
	CurveType                   uint8
	CurveParameters             [32]byte
}

// DecodeSwapAccount parses a token-swap pool account.
func DecodeSwapAccount(data []byte) (*SwapAccount, error) {
	if len(data) < SwapAccountSize {
		return nil, apperror.New(apperror.CodeInvalidPoolLayout,
			apperror.WithContext(fmt.Sprintf("swap account has %d bytes, want %d", len(data), SwapAccountSize)))
	}

	var l swapLayout
	if err := bin.NewBinDecoder(data).Decode(&l); err != nil {
		return nil, apperror.New(apperror.CodeInvalidPoolLayout, apperror.WithCause(err))
	}
	if l.IsInitialized != 1 {
		return nil, apperror.New(apperror.CodeInvalidPoolLayout, apperror.WithContext("swap account is not initialized"))
	}

	return &SwapAccount{
		Version:           l.Version,
		Bump:              l.BumpSeed,
		TokenProgram:      l.TokenProgram,
		VaultA:            l.TokenA,
		VaultB:            l.TokenB,
		PoolMint:          l.PoolMint,
		MintA:             l.TokenAMint,
		MintB:             l.TokenBMint,
		FeeAccount:        l.PoolFeeAccount,
		TradeFeeNumerator: l.TradeFeeNumerator,
		TradeFeeDenom:     l.TradeFeeDenominator,
		OwnerFeeNumerator: l.OwnerTradeFeeNumerator,
		OwnerFeeDenom:     l.OwnerTradeFeeDenominator,
		CurveType:         l.CurveType,
	}, nil
}

// FeeRate is the total fee charged on the input amount (trade plus owner fee).
func (s *SwapAccount) FeeRate() decimal.Decimal {
	return fraction(s.TradeFeeNumerator, s.TradeFeeDenom).Add(fraction(s.OwnerFeeNumerator, s.OwnerFeeDenom))
}

// Authority derives the pool authority PDA from the swap address and stored bump.
func (s *SwapAccount) Authority(swap, programID solana.PublicKey) (solana.PublicKey, error) {
	return solana.CreateProgramAddress([][]byte{swap[:], {s.Bump}}, programID)
}

func fraction(num, den uint64) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(new(big.Int).SetUint64(num), 0).Div(decimal.NewFromBigInt(new(big.Int).SetUint64(den), 0))
}

// TokenAccount is the part of an SPL token account the pool query needs.
type TokenAccount struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

// DecodeTokenAccount parses an SPL token account.
func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) < tokenAccountSize {
		return nil, apperror.New(apperror.CodeInvalidPoolLayout,
			apperror.WithContext(fmt.Sprintf("token account has %d bytes", len(data))))
	}
	var acct token.Account
	if err := bin.NewBinDecoder(data).Decode(&acct); err != nil {
		return nil, apperror.New(apperror.CodeInvalidPoolLayout, apperror.WithCause(err))
	}
	return &TokenAccount{Mint: acct.Mint, Owner: acct.Owner, Amount: acct.Amount}, nil
}

// DecodeMintDecimals returns the decimals of an SPL mint account.
func DecodeMintDecimals(data []byte) (uint8, error) {
	if len(data) < mintAccountSize {
		return 0, apperror.New(apperror.CodeInvalidPoolLayout,
			apperror.WithContext(fmt.Sprintf("mint account has %d bytes", len(data))))
	}
	var mint token.Mint
	if err := bin.NewBinDecoder(data).Decode(&mint); err != nil {
		return 0, apperror.New(apperror.CodeInvalidPoolLayout, apperror.WithCause(err))
	}
	return mint.Decimals, nil
}

// ToUnits scales a raw token amount by decimals.
func ToUnits(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}
