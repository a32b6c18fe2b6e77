package instruction

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartaccounts/bridge-relay/bridgeClient/errors"
)

func TestUint80(t *testing.T) {
	v, err := Uint80FromBig("value", MaxUint80)
	require.NoError(t, err)
	assert.Equal(t, MaxUint80, v.Big())
	_, fits := v.Uint64()
	assert.False(t, fits)

	small := Uint80FromUint64(1_000_000)
	n, fits := small.Uint64()
	assert.True(t, fits)
	assert.Equal(t, uint64(1_000_000), n)
	assert.Equal(t, "1000000", small.String())

	_, err = Uint80FromBig("value", new(big.Int).Add(MaxUint80, big.NewInt(1)))
	assert.True(t, errors.IsChainError(err, errors.ErrCodeRange))

	parsed, err := ParseUint80("amount", "1208925819614629174706175")
	require.NoError(t, err)
	assert.Equal(t, v, parsed)

	_, err = ParseUint80("amount", "12abc")
	assert.True(t, errors.IsChainError(err, errors.ErrCodeFormat))
}

func TestDatePacking(t *testing.T) {
	tests := []struct {
		packed uint64
		date   Date
	}{
		{20240229, Date{2024, time.February, 29}},
		{19991231, Date{1999, time.December, 31}},
		{99991231, Date{9999, time.December, 31}},
		{10101, Date{1, time.January, 1}},
	}
	for _, tt := range tests {
		d, err := DateFromPacked(tt.packed)
		require.NoError(t, err)
		assert.Equal(t, tt.date, d)
		assert.Equal(t, tt.packed, d.Packed())
	}

	for _, bad := range []uint64{20230229, 20241301, 20240100, 0, 100000000} {
		_, err := DateFromPacked(bad)
		assert.True(t, errors.IsChainError(err, errors.ErrCodeRange), "packed %d", bad)
	}

	d, err := ParseDate("2025-06-30")
	require.NoError(t, err)
	assert.Equal(t, uint64(20250630), d.Packed())
	assert.Equal(t, "2025-06-30", d.String())

	_, err = ParseDate("30/06/2025")
	assert.True(t, errors.IsChainError(err, errors.ErrCodeFormat))
}
