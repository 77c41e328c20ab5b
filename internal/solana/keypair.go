package solana

import (
	"crypto/ed25519"
	"fmt"

	sol "github.com/gagliardetto/solana-go"

	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
)

// SignatureLength is the size of a transaction signature in bytes.
const SignatureLength = 64

// Signature is an ed25519 transaction signature.
type Signature = sol.Signature

// Signer signs transaction messages on behalf of one account.
type Signer interface {
	PublicKey() PublicKey
	Sign(message []byte) (Signature, error)
}

// Keypair is an in-memory signer backed by a solana-go private key.
type Keypair struct {
	key sol.PrivateKey
}

var _ Signer = (*Keypair)(nil)

// ParseKeypair decodes a base58 encoded 64-byte secret key (seed || public key).
func ParseKeypair(secret string) (*Keypair, error) {
	key, err := sol.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidKeypair,
			apperror.WithCause(err),
			apperror.WithContext("secret key is not base58"))
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, apperror.New(apperror.CodeInvalidKeypair,
			apperror.WithContext(fmt.Sprintf("secret key has %d bytes, want %d", len(key), ed25519.PrivateKeySize)))
	}

	derived := sol.PrivateKey(ed25519.NewKeyFromSeed(key[:ed25519.SeedSize]))
	if !derived.PublicKey().Equals(key.PublicKey()) {
		return nil, apperror.New(apperror.CodeInvalidKeypair,
			apperror.WithContext("public half does not match the seed"))
	}
	return &Keypair{key: key}, nil
}

// KeypairFromSeed builds a keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, apperror.New(apperror.CodeInvalidKeypair,
			apperror.WithContext(fmt.Sprintf("seed has %d bytes", len(seed))))
	}
	return &Keypair{key: sol.PrivateKey(ed25519.NewKeyFromSeed(seed))}, nil
}

// PublicKey returns the account address.
func (k *Keypair) PublicKey() PublicKey {
	return k.key.PublicKey()
}

// Sign signs message.
func (k *Keypair) Sign(message []byte) (Signature, error) {
	return k.key.Sign(message)
}

// Secret returns the base58 encoded 64-byte secret key.
func (k *Keypair) Secret() string {
	return k.key.String()
}

// SignatureFromBytes copies the first 64 bytes of b.
func SignatureFromBytes(b []byte) Signature {
	var sig Signature
	copy(sig[:], b)
	return sig
}
