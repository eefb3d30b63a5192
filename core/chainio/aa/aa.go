package aa

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

// GetInitCode returns factory ‖ createAccount(safe), the init code that deploys the module
// account bound to safe.
func GetInitCode(factory common.Address, safe common.Address) ([]byte, error) {
	calldata, err := factoryABI.Pack("createAccount", safe)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, common.AddressLength+len(calldata))
	data = append(data, factory.Bytes()...)
	data = append(data, calldata...)
	return data, nil
}

// PackExecute generates the account calldata that forwards innerCalldata to target.
func PackExecute(target common.Address, innerCalldata []byte) ([]byte, error) {
	return moduleAccountABI.Pack("execute", target, innerCalldata)
}

// PackTokenTransfer generates ERC-20 transfer(to, amount) calldata.
func PackTokenTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return TokenABI.Pack("transfer", to, amount)
}

// NewValueRecipient binds a contract only for plain value transfers (its receive function).
func NewValueRecipient(address common.Address, backend bind.ContractTransactor) *bind.BoundContract {
	return bind.NewBoundContract(address, abi.ABI{}, nil, backend, nil)
}

// RevertData extracts the revert payload carried by a failed eth_call or gas estimation.
// The node returns it as a hex string in the JSON-RPC error data field.
func RevertData(err error) ([]byte, bool) {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return nil, false
	}

	switch data := dataErr.ErrorData().(type) {
	case string:
		decoded, decodeErr := hexutil.Decode(data)
		if decodeErr != nil {
			return nil, false
		}
		return decoded, true
	case []byte:
		return data, true
	case hexutil.Bytes:
		return data, true
	}
	return nil, false
}

var (
	errorStringID = crypto.Keccak256Hash([]byte("Error(string)"))
	panicID       = crypto.Keccak256Hash([]byte("Panic(uint256)"))
)

func builtinErrorName(payload []byte) string {
	if HasSelector(payload, panicID) {
		return "Panic(uint256)"
	}
	return "Error(string)"
}

// HasSelector reports whether payload starts with the 4 byte id.
func HasSelector(payload []byte, id common.Hash) bool {
	return len(payload) >= 4 && bytes.Equal(payload[:4], id[:4])
}
