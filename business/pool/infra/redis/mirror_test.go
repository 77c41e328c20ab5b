package redis

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/orca-arbitrage-bot/business/pool/domain"
)

func TestPoolKey(t *testing.T) {
	assert.Equal(t, "orcabot:pool:EGZ7", poolKey("EGZ7"))
}

func TestEncodeDecode_PreservesReservesAndTimestamp(t *testing.T) {
	refreshed := time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC)
	in := domain.PoolState{
		ID:          "EGZ7",
		ProgramID:   "9W95",
		TokenA:      "So11",
		TokenB:      "EPjF",
		ReserveA:    decimal.RequireFromString("123456.789012345"),
		ReserveB:    decimal.RequireFromString("0.000001"),
		FeeRate:     decimal.RequireFromString("0.003"),
		RefreshedAt: refreshed,
		Meta:        domain.Metadata{VaultA: "va", VaultB: "vb", DecimalsA: 9, DecimalsB: 6},
	}

	data, err := encode(in)
	require.NoError(t, err)
	out, err := decode(data)
	require.NoError(t, err)

	assert.True(t, out.ReserveA.Equal(in.ReserveA))
	assert.True(t, out.ReserveB.Equal(in.ReserveB))
	assert.True(t, out.RefreshedAt.Equal(refreshed))
	assert.Equal(t, in.Meta, out.Meta)
}

func TestNewMirror_BadURL(t *testing.T) {
	_, err := NewMirror(context.Background(), "not-a-url", time.Minute)
	assert.Error(t, err)
}
