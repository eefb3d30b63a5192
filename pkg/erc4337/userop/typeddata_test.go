package userop

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOperation(t *testing.T) *PackedUserOperation {
	t.Helper()

	gasLimits, err := PackAccountGasLimits(big.NewInt(10_000_000_000), big.NewInt(200_000))
	require.NoError(t, err)
	gasFees, err := PackGasFees(big.NewInt(5_000_000_000), big.NewInt(10_000_000_000))
	require.NoError(t, err)
	pmd, err := PackPaymasterData(common.HexToAddress("0x00000000000000000000000000000000000000aa"), big.NewInt(300_000), big.NewInt(0), nil)
	require.NoError(t, err)

	return &PackedUserOperation{
		Sender:             common.HexToAddress("0x5a0b54d5dc17e0aadc383d2db43b0a0d3e029c4c"),
		Nonce:              big.NewInt(7),
		InitCode:           common.FromHex("0x1234"),
		CallData:           common.FromHex("0xb61d27f6"),
		AccountGasLimits:   gasLimits,
		PreVerificationGas: big.NewInt(100_000),
		GasFees:            gasFees,
		PaymasterAndData:   pmd,
	}
}

func TestSafeOpFieldOrder(t *testing.T) {
	names := make([]string, 0, len(SafeOpTypes[SafeOpPrimaryType]))
	for _, f := range SafeOpTypes[SafeOpPrimaryType] {
		names = append(names, f.Name)
	}

	assert.Equal(t, []string{
		"safe", "nonce", "initCode", "callData", "gasFees",
		"preVerificationGas", "accountGasLimits", "paymasterAndData",
	}, names)

	td := SafeOpTypedData(sampleOperation(t), common.Address{}, big.NewInt(1))
	assert.Equal(t,
		"SafeOp(address safe,uint256 nonce,bytes initCode,bytes callData,bytes gasFees,uint256 preVerificationGas,bytes accountGasLimits,bytes paymasterAndData)",
		string(td.EncodeType(SafeOpPrimaryType)),
	)
}

func TestSafeOpTypedDataMessage(t *testing.T) {
	op := sampleOperation(t)
	safe := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	td := SafeOpTypedData(op, safe, big.NewInt(1))

	assert.Equal(t, SafeOpPrimaryType, td.PrimaryType)
	assert.Equal(t, safe.Hex(), td.Domain.VerifyingContract)
	assert.Equal(t, int64(1), (*big.Int)(td.Domain.ChainId).Int64())
	assert.Equal(t, op.Sender.Hex(), td.Message["safe"])
	assert.Equal(t, hexutil.Bytes(op.GasFees[:]), td.Message["gasFees"])
	assert.Equal(t, hexutil.Bytes(op.AccountGasLimits[:]), td.Message["accountGasLimits"])
	assert.Equal(t, hexutil.Bytes(op.PaymasterAndData), td.Message["paymasterAndData"])

	// the envelope must not alias the operation
	op.CallData[0] = 0xff
	assert.Equal(t, hexutil.Bytes(common.FromHex("0xb61d27f6")), td.Message["callData"])
}

func TestSafeOpHashMatchesManualEncoding(t *testing.T) {
	op := sampleOperation(t)
	safe := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	chainID := big.NewInt(1)

	got, err := SafeOpHash(op, safe, chainID)
	require.NoError(t, err)

	domainTypeHash := crypto.Keccak256([]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))
	domainSeparator := crypto.Keccak256(
		domainTypeHash,
		math.U256Bytes(new(big.Int).Set(chainID)),
		common.LeftPadBytes(safe.Bytes(), 32),
	)

	safeOpTypeHash := crypto.Keccak256([]byte("SafeOp(address safe,uint256 nonce,bytes initCode,bytes callData,bytes gasFees,uint256 preVerificationGas,bytes accountGasLimits,bytes paymasterAndData)"))
	structHash := crypto.Keccak256(
		safeOpTypeHash,
		common.LeftPadBytes(op.Sender.Bytes(), 32),
		math.U256Bytes(new(big.Int).Set(op.Nonce)),
		crypto.Keccak256(op.InitCode),
		crypto.Keccak256(op.CallData),
		crypto.Keccak256(op.GasFees[:]),
		math.U256Bytes(new(big.Int).Set(op.PreVerificationGas)),
		crypto.Keccak256(op.AccountGasLimits[:]),
		crypto.Keccak256(op.PaymasterAndData),
	)

	want := crypto.Keccak256Hash([]byte{0x19, 0x01}, domainSeparator, structHash)
	assert.Equal(t, want, got)
}

func TestSafeOpHashDependsOnDomain(t *testing.T) {
	op := sampleOperation(t)
	safe := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	mainnet, err := SafeOpHash(op, safe, big.NewInt(1))
	require.NoError(t, err)
	sepolia, err := SafeOpHash(op, safe, big.NewInt(11155111))
	require.NoError(t, err)
	other, err := SafeOpHash(op, common.HexToAddress("0x00000000000000000000000000000000000000cc"), big.NewInt(1))
	require.NoError(t, err)

	assert.NotEqual(t, mainnet, sepolia)
	assert.NotEqual(t, mainnet, other)

	_, err = SafeOpHash(op, safe, nil)
	assert.Error(t, err)
}

func TestPackedUserOperationJSON(t *testing.T) {
	op := sampleOperation(t)

	raw, err := json.Marshal(op)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"accountGasLimits":"0x000000000000000000000002540be40000000000000000000000000000030d40"`)
	assert.Contains(t, string(raw), `"nonce":"0x7"`)

	var decoded PackedUserOperation
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, op.AccountGasLimits, decoded.AccountGasLimits)
	assert.Equal(t, op.GasFees, decoded.GasFees)
	assert.Equal(t, 0, op.Nonce.Cmp(decoded.Nonce))

	err = json.Unmarshal([]byte(`{"accountGasLimits":"0x01","gasFees":"0x01"}`), &decoded)
	assert.ErrorIs(t, err, ErrMalformedOperation)
}

func TestCopyDoesNotAlias(t *testing.T) {
	op := sampleOperation(t)
	cp := op.Copy()

	cp.Nonce.SetInt64(99)
	cp.CallData[0] = 0x00

	assert.Equal(t, int64(7), op.Nonce.Int64())
	assert.Equal(t, byte(0xb6), op.CallData[0])
	assert.False(t, cp.IsSigned())
	assert.True(t, cp.HasInitCode())
}
