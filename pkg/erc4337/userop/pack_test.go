package userop

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackAccountGasLimitsKnownVector(t *testing.T) {
	packed, err := PackAccountGasLimits(big.NewInt(10_000_000_000), big.NewInt(200_000))
	require.NoError(t, err)

	assert.Equal(t,
		"0x000000000000000000000002540be40000000000000000000000000000030d40",
		hexutil.Encode(packed[:]),
	)

	want := append(math.PaddedBigBytes(big.NewInt(10_000_000_000), 16), math.PaddedBigBytes(big.NewInt(200_000), 16)...)
	assert.Equal(t, want, packed[:])
}

func TestPackGasFeesOrder(t *testing.T) {
	priority := big.NewInt(5_000_000_000)
	maxFee := big.NewInt(10_000_000_000)

	packed, err := PackGasFees(priority, maxFee)
	require.NoError(t, err)

	high, low := UnpackPair(packed)
	assert.Equal(t, 0, high.Cmp(priority), "priority fee goes in the high half")
	assert.Equal(t, 0, low.Cmp(maxFee), "max fee goes in the low half")
}

func TestPackPairBoundaries(t *testing.T) {
	maxUint128 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	twoTo128 := new(big.Int).Lsh(big.NewInt(1), 128)

	tests := []struct {
		name    string
		high    *big.Int
		low     *big.Int
		wantErr bool
	}{
		{name: "zeros", high: big.NewInt(0), low: big.NewInt(0)},
		{name: "max uint128 on both halves", high: maxUint128, low: maxUint128},
		{name: "high overflows", high: twoTo128, low: big.NewInt(1), wantErr: true},
		{name: "low overflows", high: big.NewInt(1), low: twoTo128, wantErr: true},
		{name: "negative", high: big.NewInt(-1), low: big.NewInt(1), wantErr: true},
		{name: "nil", high: nil, low: big.NewInt(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed, err := PackPair(tt.high, tt.low)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrEncodingOverflow)
				return
			}
			require.NoError(t, err)

			high, low := UnpackPair(packed)
			assert.Equal(t, 0, high.Cmp(tt.high))
			assert.Equal(t, 0, low.Cmp(tt.low))
		})
	}
}

func TestPackPaymasterData(t *testing.T) {
	paymaster := common.HexToAddress("0x1c5E9fA8b2C1E74c8B7D9B1a7d0A3a3C6b1E2F40")

	t.Run("empty extra data", func(t *testing.T) {
		out, err := PackPaymasterData(paymaster, big.NewInt(300_000), big.NewInt(0), nil)
		require.NoError(t, err)
		assert.Len(t, out, 52)
		assert.Equal(t, paymaster.Bytes(), out[:20])
		assert.Equal(t, int64(300_000), new(big.Int).SetBytes(out[20:36]).Int64())
		assert.Equal(t, make([]byte, 16), out[36:52])
	})

	t.Run("extra data is appended verbatim", func(t *testing.T) {
		extra := []byte{0xde, 0xad, 0xbe, 0xef, 0x00}
		out, err := PackPaymasterData(paymaster, big.NewInt(1), big.NewInt(2), extra)
		require.NoError(t, err)
		assert.Len(t, out, 52+len(extra))
		assert.Equal(t, extra, out[52:])

		parsed, err := ParsePaymasterData(out)
		require.NoError(t, err)
		assert.Equal(t, paymaster, parsed.Paymaster)
		assert.Equal(t, int64(1), parsed.VerificationGasLimit.Int64())
		assert.Equal(t, int64(2), parsed.PostOpGasLimit.Int64())
		assert.Equal(t, extra, parsed.Data)
	})

	t.Run("gas overflow is rejected", func(t *testing.T) {
		_, err := PackPaymasterData(paymaster, new(big.Int).Lsh(big.NewInt(1), 130), big.NewInt(0), nil)
		assert.ErrorIs(t, err, ErrEncodingOverflow)
	})
}

func TestParsePaymasterData(t *testing.T) {
	parsed, err := ParsePaymasterData(nil)
	require.NoError(t, err)
	assert.Nil(t, parsed)

	_, err = ParsePaymasterData(make([]byte, 51))
	assert.ErrorIs(t, err, ErrMalformedPaymasterData)
}
