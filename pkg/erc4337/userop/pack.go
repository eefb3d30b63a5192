package userop

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

const (
	// pairFieldSize is the width of each half of a packed bytes32 pair.
	pairFieldSize = 16

	paymasterAddressEnd  = common.AddressLength
	paymasterVerifGasEnd = paymasterAddressEnd + pairFieldSize
	PaymasterDataOffset  = paymasterVerifGasEnd + pairFieldSize
)

func packUint128(v *big.Int) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrEncodingOverflow)
	}
	if v.Sign() < 0 || v.BitLen() > pairFieldSize*8 {
		return nil, fmt.Errorf("%w: %s", ErrEncodingOverflow, v.String())
	}
	return math.PaddedBigBytes(v, pairFieldSize), nil
}

// PackPair concatenates high and low, each left padded to 16 bytes, into a bytes32.
func PackPair(high, low *big.Int) ([32]byte, error) {
	var out [32]byte

	h, err := packUint128(high)
	if err != nil {
		return out, err
	}
	l, err := packUint128(low)
	if err != nil {
		return out, err
	}

	copy(out[:pairFieldSize], h)
	copy(out[pairFieldSize:], l)
	return out, nil
}

// UnpackPair splits a packed bytes32 back into its two halves.
func UnpackPair(packed [32]byte) (*big.Int, *big.Int) {
	high := new(big.Int).SetBytes(packed[:pairFieldSize])
	low := new(big.Int).SetBytes(packed[pairFieldSize:])
	return high, low
}

// PackAccountGasLimits packs verificationGasLimit ‖ callGasLimit.
func PackAccountGasLimits(verificationGasLimit, callGasLimit *big.Int) ([32]byte, error) {
	return PackPair(verificationGasLimit, callGasLimit)
}

// PackGasFees packs maxPriorityFeePerGas ‖ maxFeePerGas.
func PackGasFees(maxPriorityFeePerGas, maxFeePerGas *big.Int) ([32]byte, error) {
	return PackPair(maxPriorityFeePerGas, maxFeePerGas)
}

// PackPaymasterData builds paymasterAndData as
// paymaster(20) ‖ verificationGasLimit(16) ‖ postOpGasLimit(16) ‖ data.
func PackPaymasterData(paymaster common.Address, verificationGasLimit, postOpGasLimit *big.Int, data []byte) ([]byte, error) {
	verif, err := packUint128(verificationGasLimit)
	if err != nil {
		return nil, fmt.Errorf("paymaster verification gas: %w", err)
	}
	postOp, err := packUint128(postOpGasLimit)
	if err != nil {
		return nil, fmt.Errorf("paymaster postOp gas: %w", err)
	}

	out := make([]byte, 0, PaymasterDataOffset+len(data))
	out = append(out, paymaster.Bytes()...)
	out = append(out, verif...)
	out = append(out, postOp...)
	out = append(out, data...)
	return out, nil
}

// PaymasterData is the decoded form of paymasterAndData.
type PaymasterData struct {
	Paymaster            common.Address
	VerificationGasLimit *big.Int
	PostOpGasLimit       *big.Int
	Data                 []byte
}

// ParsePaymasterData decodes paymasterAndData. An empty input means no sponsorship and
// returns nil without error.
func ParsePaymasterData(raw []byte) (*PaymasterData, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if len(raw) < PaymasterDataOffset {
		return nil, ErrMalformedPaymasterData
	}

	return &PaymasterData{
		Paymaster:            common.BytesToAddress(raw[:paymasterAddressEnd]),
		VerificationGasLimit: new(big.Int).SetBytes(raw[paymasterAddressEnd:paymasterVerifGasEnd]),
		PostOpGasLimit:       new(big.Int).SetBytes(raw[paymasterVerifGasEnd:PaymasterDataOffset]),
		Data:                 common.CopyBytes(raw[PaymasterDataOffset:]),
	}, nil
}
