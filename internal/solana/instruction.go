package solana

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	sol "github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// Instruction is a single program invocation.
type Instruction = sol.Instruction

// SetComputeUnitLimit caps the compute units the transaction may consume.
func SetComputeUnitLimit(units uint32) Instruction {
	return computebudget.NewSetComputeUnitLimitInstruction(units).Build()
}

// SetComputeUnitPrice sets the priority fee in micro-lamports per compute unit.
func SetComputeUnitPrice(microLamports uint64) Instruction {
	return computebudget.NewSetComputeUnitPriceInstruction(microLamports).Build()
}

// tokenSwapInstructionSwap is the Swap variant of the token-swap program.
const tokenSwapInstructionSwap = 1

type swapData struct {
	Instruction      uint8
	AmountIn         uint64
	MinimumAmountOut uint64
}

// SwapAccounts lists the accounts of a token-swap Swap instruction.
type SwapAccounts struct {
	Swap            PublicKey
	Authority       PublicKey
	UserAuthority   PublicKey
	UserSource      PublicKey
	PoolSource      PublicKey
	PoolDestination PublicKey
	UserDestination PublicKey
	PoolMint        PublicKey
	FeeAccount      PublicKey
	TokenProgram    PublicKey
}

// TokenSwap builds a Swap instruction for a token-swap compatible program.
func TokenSwap(programID PublicKey, accts SwapAccounts, amountIn, minimumOut uint64) (Instruction, error) {
	buf := new(bytes.Buffer)
	err := bin.NewBinEncoder(buf).Encode(swapData{
		Instruction:      tokenSwapInstructionSwap,
		AmountIn:         amountIn,
		MinimumAmountOut: minimumOut,
	})
	if err != nil {
		return nil, err
	}

	tokenProgram := accts.TokenProgram
	if tokenProgram.IsZero() {
		tokenProgram = TokenProgramID
	}

	return sol.NewInstruction(programID, sol.AccountMetaSlice{
		sol.Meta(accts.Swap),
		sol.Meta(accts.Authority),
		sol.Meta(accts.UserAuthority).SIGNER(),
		sol.Meta(accts.UserSource).WRITE(),
		sol.Meta(accts.PoolSource).WRITE(),
		sol.Meta(accts.PoolDestination).WRITE(),
		sol.Meta(accts.UserDestination).WRITE(),
		sol.Meta(accts.PoolMint).WRITE(),
		sol.Meta(accts.FeeAccount).WRITE(),
		sol.Meta(tokenProgram),
	}, buf.Bytes()), nil
}
