// Package txbuilder compiles bundles into signed token-swap transactions.
package txbuilder

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/domain"
	ledgerdomain "github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
	pooldomain "github.com/fd1az/orca-arbitrage-bot/business/pool/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/solana"
)

const tracerName = "github.com/fd1az/orca-arbitrage-bot/business/arbitrage/infra/txbuilder"

// Builder implements app.TxBuilder. Every opportunity becomes one Swap
// instruction between the signer's associated token accounts and the pool
// vaults, behind the compute budget instructions.
type Builder struct {
	signer solana.Signer
	tracer trace.Tracer
}

// New creates a Builder signing with signer.
func New(signer solana.Signer) *Builder {
	return &Builder{
		signer: signer,
		tracer: otel.Tracer(tracerName),
	}
}

// Payer returns the signer address.
func (b *Builder) Payer() string {
	return b.signer.PublicKey().String()
}

// Build compiles, signs and serializes bundle.
func (b *Builder) Build(ctx context.Context, bundle domain.Bundle, blockhash ledgerdomain.Blockhash, budget app.ComputeBudget) (app.SignedTransaction, error) {
	_, span := b.tracer.Start(ctx, "txbuilder.Build",
		trace.WithAttributes(
			attribute.String("bundle.id", bundle.ID),
			attribute.Int("bundle.size", bundle.Size()),
			attribute.Int64("compute.unit_limit", int64(budget.UnitLimit)),
			attribute.Int64("compute.micro_lamports", int64(budget.MicroLamports)),
		),
	)
	defer span.End()

	tx, err := b.build(bundle, blockhash, budget)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return app.SignedTransaction{}, err
	}

	span.SetAttributes(attribute.Int("tx.bytes", len(tx.Raw)), attribute.String("tx.signature", tx.Signature))
	span.SetStatus(codes.Ok, "")
	return tx, nil
}

func (b *Builder) build(bundle domain.Bundle, blockhash ledgerdomain.Blockhash, budget app.ComputeBudget) (app.SignedTransaction, error) {
	payer := b.signer.PublicKey()

	ixs := []solana.Instruction{
		solana.SetComputeUnitLimit(budget.UnitLimit),
		solana.SetComputeUnitPrice(budget.MicroLamports),
	}
	for _, opp := range bundle.Opportunities {
		ix, err := swapInstruction(payer, opp)
		if err != nil {
			return app.SignedTransaction{}, err
		}
		ixs = append(ixs, ix)
	}

	tx, err := solana.NewTransaction(payer, blockhash.Hash, ixs...)
	if err != nil {
		return app.SignedTransaction{}, apperror.New(apperror.CodeInvalidInput, apperror.WithCause(err))
	}
	if err := solana.Sign(tx, b.signer); err != nil {
		return app.SignedTransaction{}, apperror.New(apperror.CodeSigningFailed, apperror.WithCause(err))
	}

	raw, err := solana.Serialize(tx)
	if err != nil {
		if errors.Is(err, solana.ErrTooLarge) {
			return app.SignedTransaction{}, apperror.New(apperror.CodeTransactionTooLarge,
				apperror.WithCause(err),
				apperror.WithContext("bundle of "+bundle.ID))
		}
		return app.SignedTransaction{}, apperror.New(apperror.CodeInvalidInput, apperror.WithCause(err))
	}

	return app.SignedTransaction{Raw: raw, Signature: solana.TransactionID(tx).String()}, nil
}

// swapInstruction builds the Swap instruction of opp.
func swapInstruction(payer solana.PublicKey, opp domain.Opportunity) (solana.Instruction, error) {
	meta := opp.Pool

	poolSource, poolDest := meta.VaultA, meta.VaultB
	if opp.InputToken == meta.MintB {
		poolSource, poolDest = meta.VaultB, meta.VaultA
	}

	keys, err := parseKeys(map[string]string{
		"program":     meta.ProgramID,
		"swap":        meta.Address,
		"authority":   meta.Authority,
		"pool_source": poolSource,
		"pool_dest":   poolDest,
		"pool_mint":   meta.PoolMint,
		"fee_account": meta.FeeAccount,
		"input_mint":  opp.InputToken,
		"output_mint": opp.OutputToken,
	})
	if err != nil {
		return nil, err
	}

	var tokenProgram solana.PublicKey
	if meta.TokenProgram != "" {
		if tokenProgram, err = solana.ParsePublicKey(meta.TokenProgram); err != nil {
			return nil, apperror.New(apperror.CodeInvalidPublicKey, apperror.WithCause(err))
		}
	}

	userSource, err := solana.FindAssociatedTokenAddress(payer, keys["input_mint"])
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidPublicKey, apperror.WithCause(err))
	}
	userDest, err := solana.FindAssociatedTokenAddress(payer, keys["output_mint"])
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidPublicKey, apperror.WithCause(err))
	}

	amountIn := toRaw(opp.InputAmount, decimalsOf(meta, opp.InputToken))
	if amountIn == 0 {
		return nil, apperror.New(apperror.CodeInvalidTradeSize,
			apperror.WithContext("input rounds to zero for opportunity "+opp.ID))
	}
	minOut := toRaw(opp.MinOutput, decimalsOf(meta, opp.OutputToken))

	ix, err := solana.TokenSwap(keys["program"], solana.SwapAccounts{
		Swap:            keys["swap"],
		Authority:       keys["authority"],
		UserAuthority:   payer,
		UserSource:      userSource,
		PoolSource:      keys["pool_source"],
		PoolDestination: keys["pool_dest"],
		UserDestination: userDest,
		PoolMint:        keys["pool_mint"],
		FeeAccount:      keys["fee_account"],
		TokenProgram:    tokenProgram,
	}, amountIn, minOut)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithCause(err))
	}
	return ix, nil
}

func parseKeys(in map[string]string) (map[string]solana.PublicKey, error) {
	out := make(map[string]solana.PublicKey, len(in))
	for name, s := range in {
		pk, err := solana.ParsePublicKey(s)
		if err != nil {
			return nil, apperror.New(apperror.CodeInvalidPublicKey,
				apperror.WithCause(err),
				apperror.WithContext(name+" "+s))
		}
		out[name] = pk
	}
	return out, nil
}

func decimalsOf(meta pooldomain.Metadata, mint string) uint8 {
	if mint == meta.MintB {
		return meta.DecimalsB
	}
	return meta.DecimalsA
}

// toRaw converts token units to base units, rounding down.
func toRaw(units decimal.Decimal, decimals uint8) uint64 {
	v := units.Shift(int32(decimals)).Floor()
	if v.IsNegative() {
		return 0
	}
	bi := v.BigInt()
	if !bi.IsUint64() {
		return 0
	}
	return bi.Uint64()
}
