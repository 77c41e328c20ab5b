// Package solana adapts gagliardetto/solana-go to the bot: address parsing
// with coded errors, well-known program ids, the signer abstraction and the
// token-swap instruction the bundles are built from.
package solana

import (
	sol "github.com/gagliardetto/solana-go"

	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
)

// PublicKey is a 32-byte account address.
type PublicKey = sol.PublicKey

// Well-known program ids.
var (
	SystemProgramID          = sol.SystemProgramID
	TokenProgramID           = sol.TokenProgramID
	AssociatedTokenProgramID = sol.SPLAssociatedTokenAccountProgramID
	ComputeBudgetProgramID   = sol.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")
	WrappedSOLMint           = sol.SolMint
)

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	pk, err := sol.PublicKeyFromBase58(s)
	if err != nil {
		return PublicKey{}, apperror.New(apperror.CodeInvalidPublicKey,
			apperror.WithCause(err),
			apperror.WithContext(s))
	}
	return pk, nil
}

// MustPublicKey parses s and panics on error. Used for constants.
func MustPublicKey(s string) PublicKey {
	return sol.MustPublicKeyFromBase58(s)
}

// PublicKeyFromBytes copies the first 32 bytes of b.
func PublicKeyFromBytes(b []byte) PublicKey {
	return sol.PublicKeyFromBytes(b)
}

// CreateProgramAddress derives an address from seeds under programID.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	return sol.CreateProgramAddress(seeds, programID)
}

// FindProgramAddress searches bumps from 255 down for the first off-curve address.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	return sol.FindProgramAddress(seeds, programID)
}

// FindAssociatedTokenAddress returns the canonical token account of wallet for mint.
func FindAssociatedTokenAddress(wallet, mint PublicKey) (PublicKey, error) {
	addr, _, err := sol.FindAssociatedTokenAddress(wallet, mint)
	return addr, err
}
