package userop

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// PackedUserOperation is the EntryPoint v0.7 wire form of a user operation. Field names
// follow the contract tuple so the struct can be passed straight to the ABI encoder.
type PackedUserOperation struct {
	Sender             common.Address
	Nonce              *big.Int
	InitCode           []byte
	CallData           []byte
	AccountGasLimits   [32]byte
	PreVerificationGas *big.Int
	GasFees            [32]byte
	PaymasterAndData   []byte
	Signature          []byte
}

// Copy returns a deep copy so a signed operation never aliases the one it was built from.
func (op *PackedUserOperation) Copy() *PackedUserOperation {
	cp := &PackedUserOperation{
		Sender:           op.Sender,
		InitCode:         common.CopyBytes(op.InitCode),
		CallData:         common.CopyBytes(op.CallData),
		AccountGasLimits: op.AccountGasLimits,
		GasFees:          op.GasFees,
		PaymasterAndData: common.CopyBytes(op.PaymasterAndData),
		Signature:        common.CopyBytes(op.Signature),
	}
	if op.Nonce != nil {
		cp.Nonce = new(big.Int).Set(op.Nonce)
	}
	if op.PreVerificationGas != nil {
		cp.PreVerificationGas = new(big.Int).Set(op.PreVerificationGas)
	}
	return cp
}

// HasInitCode reports whether the operation deploys its sender.
func (op *PackedUserOperation) HasInitCode() bool {
	return len(op.InitCode) > 0
}

// IsSigned reports whether a signature has been attached.
func (op *PackedUserOperation) IsSigned() bool {
	return len(op.Signature) > 0
}

type packedUserOperationJSON struct {
	Sender             common.Address `json:"sender"`
	Nonce              *hexutil.Big   `json:"nonce"`
	InitCode           hexutil.Bytes  `json:"initCode"`
	CallData           hexutil.Bytes  `json:"callData"`
	AccountGasLimits   hexutil.Bytes  `json:"accountGasLimits"`
	PreVerificationGas *hexutil.Big   `json:"preVerificationGas"`
	GasFees            hexutil.Bytes  `json:"gasFees"`
	PaymasterAndData   hexutil.Bytes  `json:"paymasterAndData"`
	Signature          hexutil.Bytes  `json:"signature"`
}

// MarshalJSON renders the operation with hex encoded fields, the format bundlers and
// block explorers use.
func (op PackedUserOperation) MarshalJSON() ([]byte, error) {
	return json.Marshal(packedUserOperationJSON{
		Sender:             op.Sender,
		Nonce:              (*hexutil.Big)(op.Nonce),
		InitCode:           op.InitCode,
		CallData:           op.CallData,
		AccountGasLimits:   op.AccountGasLimits[:],
		PreVerificationGas: (*hexutil.Big)(op.PreVerificationGas),
		GasFees:            op.GasFees[:],
		PaymasterAndData:   op.PaymasterAndData,
		Signature:          op.Signature,
	})
}

func (op *PackedUserOperation) UnmarshalJSON(data []byte) error {
	var raw packedUserOperationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.AccountGasLimits) != 32 || len(raw.GasFees) != 32 {
		return ErrMalformedOperation
	}

	op.Sender = raw.Sender
	op.Nonce = (*big.Int)(raw.Nonce)
	op.InitCode = raw.InitCode
	op.CallData = raw.CallData
	copy(op.AccountGasLimits[:], raw.AccountGasLimits)
	op.PreVerificationGas = (*big.Int)(raw.PreVerificationGas)
	copy(op.GasFees[:], raw.GasFees)
	op.PaymasterAndData = raw.PaymasterAndData
	op.Signature = raw.Signature
	return nil
}
