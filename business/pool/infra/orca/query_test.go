package orca

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgerdomain "github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
	"github.com/fd1az/orca-arbitrage-bot/internal/solana"
)

var programID = solana.MustPublicKey("9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP")

func key(b byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

type fixture struct {
	swap, vaultA, vaultB, poolMint, mintA, mintB, fee solana.PublicKey
	bump                                                 uint8
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		swap: key(1), vaultA: key(2), vaultB: key(3), poolMint: key(4),
		mintA: key(5), mintB: key(6), fee: key(7),
	}
	_, bump, err := solana.FindProgramAddress([][]byte{f.swap[:]}, programID)
	require.NoError(t, err)
	f.bump = bump
	return f
}

func (f fixture) swapData() []byte {
	data := make([]byte, SwapAccountSize)
	data[offVersion] = 1
	data[offInitialized] = 1
	data[offBump] = f.bump
	copy(data[offTokenProgram:], solana.TokenProgramID[:])
	copy(data[offTokenA:], f.vaultA[:])
	copy(data[offTokenB:], f.vaultB[:])
	copy(data[offPoolMint:], f.poolMint[:])
	copy(data[offMintA:], f.mintA[:])
	copy(data[offMintB:], f.mintB[:])
	copy(data[offFeeAccount:], f.fee[:])
	binary.LittleEndian.PutUint64(data[offTradeFeeNum:], 25)
	binary.LittleEndian.PutUint64(data[offTradeFeeDen:], 10000)
	binary.LittleEndian.PutUint64(data[offOwnerFeeNum:], 5)
	binary.LittleEndian.PutUint64(data[offOwnerFeeDen:], 10000)
	return data
}

func tokenData(mint solana.PublicKey, amount uint64) []byte {
	data := make([]byte, tokenAccountSize)
	copy(data[offTokenMint:], mint[:])
	binary.LittleEndian.PutUint64(data[offTokenAmount:], amount)
	return data
}

func mintData(decimals uint8) []byte {
	data := make([]byte, mintAccountSize)
	data[offMintDecimals] = decimals
	return data
}

type fakeReader struct {
	mu       sync.Mutex
	accounts map[string]*ledgerdomain.AccountInfo
	calls    [][]string
	err      error
}

func (r *fakeReader) GetMultipleAccounts(_ context.Context, keys []string) ([]*ledgerdomain.AccountInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, keys)
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*ledgerdomain.AccountInfo, len(keys))
	for i, k := range keys {
		out[i] = r.accounts[k]
	}
	return out, nil
}

func newReader(f fixture, reserveA, reserveB uint64) *fakeReader {
	return &fakeReader{accounts: map[string]*ledgerdomain.AccountInfo{
		f.swap.String():   {Owner: programID.String(), Data: f.swapData()},
		f.vaultA.String(): {Owner: solana.TokenProgramID.String(), Data: tokenData(f.mintA, reserveA)},
		f.vaultB.String(): {Owner: solana.TokenProgramID.String(), Data: tokenData(f.mintB, reserveB)},
		f.mintA.String():  {Owner: solana.TokenProgramID.String(), Data: mintData(9)},
		f.mintB.String():  {Owner: solana.TokenProgramID.String(), Data: mintData(6)},
	}}
}

func TestDecodeSwapAccount(t *testing.T) {
	f := newFixture(t)

	swap, err := DecodeSwapAccount(f.swapData())
	require.NoError(t, err)
	assert.Equal(t, f.vaultA, swap.VaultA)
	assert.Equal(t, f.mintB, swap.MintB)
	assert.Equal(t, f.fee, swap.FeeAccount)
	assert.Equal(t, f.bump, swap.Bump)
	assert.Equal(t, solana.TokenProgramID, swap.TokenProgram)
	assert.Equal(t, "0.003", swap.FeeRate().String())

	_, err = DecodeSwapAccount(make([]byte, 10))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidPoolLayout))

	uninitialized := f.swapData()
	uninitialized[offInitialized] = 0
	_, err = DecodeSwapAccount(uninitialized)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidPoolLayout))
}

func TestDecodeTokenAccount(t *testing.T) {
	acct, err := DecodeTokenAccount(tokenData(key(9), 123456))
	require.NoError(t, err)
	assert.Equal(t, key(9), acct.Mint)
	assert.Equal(t, uint64(123456), acct.Amount)

	_, err = DecodeTokenAccount(make([]byte, 64))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidPoolLayout))
}

func TestDecodeMintDecimals(t *testing.T) {
	d, err := DecodeMintDecimals(mintData(6))
	require.NoError(t, err)
	assert.Equal(t, uint8(6), d)

	_, err = DecodeMintDecimals(make([]byte, 10))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidPoolLayout))
}

func TestToUnits(t *testing.T) {
	assert.Equal(t, "1.5", ToUnits(1_500_000_000, 9).String())
	assert.Equal(t, "18446744073709.551615", ToUnits(^uint64(0), 6).String())
}

func TestQuery_QueryPool(t *testing.T) {
	f := newFixture(t)
	reader := newReader(f, 1_000_000_000_000, 500_000_000)

	q, err := NewQuery(reader, logger.NewNop())
	require.NoError(t, err)
	defer q.Close()

	state, err := q.QueryPool(context.Background(), f.swap.String())
	require.NoError(t, err)

	assert.Equal(t, f.swap.String(), state.ID)
	assert.Equal(t, programID.String(), state.ProgramID)
	assert.Equal(t, f.mintA.String(), state.TokenA)
	assert.True(t, state.ReserveA.Equal(decimal.NewFromInt(1000)))
	assert.True(t, state.ReserveB.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "0.003", state.FeeRate.String())
	assert.Equal(t, uint8(9), state.Meta.DecimalsA)

	wantAuthority, err := solana.CreateProgramAddress([][]byte{f.swap[:], {f.bump}}, programID)
	require.NoError(t, err)
	assert.Equal(t, wantAuthority.String(), state.Meta.Authority)
}

func TestQuery_MetadataIsCached(t *testing.T) {
	f := newFixture(t)
	reader := newReader(f, 10, 10)

	q, err := NewQuery(reader, logger.NewNop())
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	_, err = q.QueryPool(ctx, f.swap.String())
	require.NoError(t, err)
	_, err = q.QueryPool(ctx, f.swap.String())
	require.NoError(t, err)

	// pool + mints + vaults, then vaults only
	assert.Len(t, reader.calls, 4)

	q.Forget(ctx, f.swap.String())
	_, err = q.QueryPool(ctx, f.swap.String())
	require.NoError(t, err)
	assert.Len(t, reader.calls, 7)
}

func TestQuery_MissingPool(t *testing.T) {
	f := newFixture(t)
	reader := newReader(f, 10, 10)

	q, err := NewQuery(reader, logger.NewNop())
	require.NoError(t, err)
	defer q.Close()

	_, err = q.QueryPool(context.Background(), key(42).String())
	assert.True(t, apperror.HasCode(err, apperror.CodeAccountNotFound))
}

func TestQuery_ReaderError(t *testing.T) {
	f := newFixture(t)
	reader := newReader(f, 10, 10)
	reader.err = errors.New("connection refused")

	q, err := NewQuery(reader, logger.NewNop())
	require.NoError(t, err)
	defer q.Close()

	_, err = q.QueryPool(context.Background(), f.swap.String())
	assert.Error(t, err)
}
