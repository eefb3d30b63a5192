package byte4

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Selector returns the leading 4 bytes of calldata or revert data.
func Selector(data []byte) ([4]byte, error) {
	var id [4]byte
	if len(data) < 4 {
		return id, fmt.Errorf("invalid selector length: %d", len(data))
	}
	copy(id[:], data[:4])
	return id, nil
}

// GetMethodFromCalldata returns the ABI method for a given 4-byte selector or full calldata
func GetMethodFromCalldata(parsedABI abi.ABI, calldata []byte) (*abi.Method, error) {
	if _, err := Selector(calldata); err != nil {
		return nil, err
	}

	method, err := parsedABI.MethodById(calldata[:4])
	if err != nil {
		return nil, fmt.Errorf("no matching method found for selector: 0x%x", calldata[:4])
	}
	return method, nil
}

// GetErrorFromRevert returns the custom error declared in parsedABI whose selector
// prefixes the revert payload.
func GetErrorFromRevert(parsedABI abi.ABI, payload []byte) (*abi.Error, error) {
	id, err := Selector(payload)
	if err != nil {
		return nil, err
	}

	customErr, err := parsedABI.ErrorByID(id)
	if err != nil {
		return nil, fmt.Errorf("no matching error found for selector: 0x%x", id)
	}
	return customErr, nil
}
