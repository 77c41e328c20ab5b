package txbuilder

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/domain"
	ledgerdomain "github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
	pooldomain "github.com/fd1az/orca-arbitrage-bot/business/pool/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/solana"
)

const (
	orcaV2 = "9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP"
	wsol   = "So11111111111111111111111111111111111111112"
	usdc   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func keypair(t *testing.T, n byte) *solana.Keypair {
	t.Helper()
	seed := make([]byte, 32)
	seed[0] = n
	seed[31] = 0x5a
	kp, err := solana.KeypairFromSeed(seed)
	require.NoError(t, err)
	return kp
}

func address(t *testing.T, n byte) string {
	return keypair(t, n).PublicKey().String()
}

// opportunity returns a wSOL -> USDC swap on a pool whose accounts derive from n.
func opportunity(t *testing.T, n byte) domain.Opportunity {
	t.Helper()
	base := n * 10
	return domain.Opportunity{
		ID:              fmt.Sprintf("opp-%d", n),
		PoolID:          address(t, base),
		Direction:       domain.DirectionAToB,
		InputToken:      wsol,
		OutputToken:     usdc,
		InputAmount:     decimal.RequireFromString("1.5"),
		ExpectedOutput:  decimal.RequireFromString("210.123456"),
		MinOutput:       decimal.RequireFromString("209.0727387"),
		EstimatedProfit: decimal.RequireFromString("0.01"),
		Pool: pooldomain.Metadata{
			Address:    address(t, base),
			ProgramID:  orcaV2,
			Authority:  address(t, base+1),
			VaultA:     address(t, base+2),
			VaultB:     address(t, base+3),
			MintA:      wsol,
			MintB:      usdc,
			PoolMint:   address(t, base+4),
			FeeAccount: address(t, base+5),
			DecimalsA:  9,
			DecimalsB:  6,
		},
	}
}

func TestBuilder_Build(t *testing.T) {
	signer := keypair(t, 1)
	b := New(signer)
	require.Equal(t, signer.PublicKey().String(), b.Payer())

	bundle := domain.NewBundle([]domain.Opportunity{opportunity(t, 2)}, time.Now())
	blockhash := ledgerdomain.Blockhash{Hash: [32]byte{1, 2, 3}}

	tx, err := b.Build(context.Background(), bundle, blockhash, app.ComputeBudget{UnitLimit: 200_000, MicroLamports: 1500})
	require.NoError(t, err)
	require.NotEmpty(t, tx.Raw)
	require.LessOrEqual(t, len(tx.Raw), solana.PacketDataSize)

	// one signature, then the message it signs
	require.Equal(t, byte(1), tx.Raw[0])
	sigBytes := tx.Raw[1 : 1+solana.SignatureLength]
	assert.Equal(t, solana.SignatureFromBytes(sigBytes).String(), tx.Signature)

	pub := signer.PublicKey()
	assert.True(t, ed25519.Verify(pub[:], tx.Raw[1+solana.SignatureLength:], sigBytes))
}

func TestBuilder_Errors(t *testing.T) {
	signer := keypair(t, 1)
	blockhash := ledgerdomain.Blockhash{Hash: [32]byte{9}}
	budget := app.ComputeBudget{UnitLimit: 200_000, MicroLamports: 1}

	tests := []struct {
		name string
		opps func() []domain.Opportunity
		code apperror.Code
	}{
		{
			name: "invalid pool account",
			opps: func() []domain.Opportunity {
				o := opportunity(t, 2)
				o.Pool.FeeAccount = "not-a-key"
				return []domain.Opportunity{o}
			},
			code: apperror.CodeInvalidPublicKey,
		},
		{
			name: "input rounds to zero",
			opps: func() []domain.Opportunity {
				o := opportunity(t, 2)
				o.InputAmount = decimal.RequireFromString("0.0000000001")
				return []domain.Opportunity{o}
			},
			code: apperror.CodeInvalidTradeSize,
		},
		{
			name: "too many pools for one packet",
			opps: func() []domain.Opportunity {
				var out []domain.Opportunity
				for n := byte(2); n < 8; n++ {
					out = append(out, opportunity(t, n))
				}
				return out
			},
			code: apperror.CodeTransactionTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle := domain.NewBundle(tt.opps(), time.Now())
			_, err := New(signer).Build(context.Background(), bundle, blockhash, budget)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestToRaw(t *testing.T) {
	tests := []struct {
		units    string
		decimals uint8
		want     uint64
	}{
		{"1.5", 9, 1_500_000_000},
		{"209.0727387", 6, 209_072_738},
		{"0.0000001", 6, 0},
		{"-1", 6, 0},
	}
	for _, tt := range tests {
		t.Run(tt.units, func(t *testing.T) {
			assert.Equal(t, tt.want, toRaw(decimal.RequireFromString(tt.units), tt.decimals))
		})
	}
}
