package userop

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const SafeOpPrimaryType = "SafeOp"

// SafeOpTypes are the EIP-712 types the Safe 4337 module signs over. Field order is part of
// the type hash: gasFees comes before preVerificationGas.
var SafeOpTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	SafeOpPrimaryType: {
		{Name: "safe", Type: "address"},
		{Name: "nonce", Type: "uint256"},
		{Name: "initCode", Type: "bytes"},
		{Name: "callData", Type: "bytes"},
		{Name: "gasFees", Type: "bytes"},
		{Name: "preVerificationGas", Type: "uint256"},
		{Name: "accountGasLimits", Type: "bytes"},
		{Name: "paymasterAndData", Type: "bytes"},
	},
}

// SafeOpTypedData re-shapes an operation into the typed-data envelope for the given
// verifying contract and chain. It is a pure transform and never touches the network.
func SafeOpTypedData(op *PackedUserOperation, verifyingContract common.Address, chainID *big.Int) apitypes.TypedData {
	nonce := op.Nonce
	if nonce == nil {
		nonce = new(big.Int)
	}
	pvg := op.PreVerificationGas
	if pvg == nil {
		pvg = new(big.Int)
	}

	domain := apitypes.TypedDataDomain{VerifyingContract: verifyingContract.Hex()}
	if chainID != nil {
		domain.ChainId = (*math.HexOrDecimal256)(new(big.Int).Set(chainID))
	}

	return apitypes.TypedData{
		Types:       SafeOpTypes,
		PrimaryType: SafeOpPrimaryType,
		Domain:      domain,
		Message: apitypes.TypedDataMessage{
			"safe":               op.Sender.Hex(),
			"nonce":              new(big.Int).Set(nonce),
			"initCode":           hexutil.Bytes(common.CopyBytes(op.InitCode)),
			"callData":           hexutil.Bytes(common.CopyBytes(op.CallData)),
			"gasFees":            hexutil.Bytes(common.CopyBytes(op.GasFees[:])),
			"preVerificationGas": new(big.Int).Set(pvg),
			"accountGasLimits":   hexutil.Bytes(common.CopyBytes(op.AccountGasLimits[:])),
			"paymasterAndData":   hexutil.Bytes(common.CopyBytes(op.PaymasterAndData)),
		},
	}
}

// SafeOpHash returns the EIP-712 digest of the SafeOp envelope.
func SafeOpHash(op *PackedUserOperation, verifyingContract common.Address, chainID *big.Int) (common.Hash, error) {
	if chainID == nil {
		return common.Hash{}, fmt.Errorf("safe op hash: chain id is required")
	}

	digest, _, err := apitypes.TypedDataAndHash(SafeOpTypedData(op, verifyingContract, chainID))
	if err != nil {
		return common.Hash{}, fmt.Errorf("safe op hash: %w", err)
	}
	return common.BytesToHash(digest), nil
}
