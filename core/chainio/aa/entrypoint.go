package aa

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/AvaProtocol/safe-userop/pkg/erc4337/userop"
)

// EntryPoint is a thin binding over the EntryPoint v0.7 contract.
type EntryPoint struct {
	address  common.Address
	contract *bind.BoundContract
}

// UserOperationEvent is emitted once per executed operation, whether or not its call succeeded.
type UserOperationEvent struct {
	UserOpHash    [32]byte
	Sender        common.Address
	Paymaster     common.Address
	Nonce         *big.Int
	Success       bool
	ActualGasCost *big.Int
	ActualGasUsed *big.Int
	Raw           types.Log
}

// UserOperationRevertReason carries the revert payload of an operation whose call failed.
type UserOperationRevertReason struct {
	UserOpHash   [32]byte
	Sender       common.Address
	Nonce        *big.Int
	RevertReason []byte
	Raw          types.Log
}

func NewEntryPoint(address common.Address, backend bind.ContractBackend) *EntryPoint {
	return &EntryPoint{
		address:  address,
		contract: bind.NewBoundContract(address, EntryPointABI, backend, backend, backend),
	}
}

func (ep *EntryPoint) Address() common.Address {
	return ep.address
}

func collaboratorError(method string, err error) error {
	return fmt.Errorf("%w: %s: %w", userop.ErrCollaboratorUnavailable, method, err)
}

// GetNonce reads the current nonce of sender on the given key lane.
func (ep *EntryPoint) GetNonce(ctx context.Context, sender common.Address, key *big.Int) (*big.Int, error) {
	if key == nil {
		key = DefaultNonceKey
	}

	var out []interface{}
	if err := ep.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getNonce", sender, key); err != nil {
		return nil, collaboratorError("entrypoint.getNonce", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// GetSenderAddress derives the counterfactual account address for initCode.
//
// getSenderAddress never returns normally: the entry point runs the factory and reverts
// with SenderAddressResult(address), so the address is read from the trailing 20 bytes of
// the revert payload. A call that succeeds, a payload shorter than an address, an entry point
// error such as FailedOp and an Error(string) or Panic(uint256) revert are all reported as
// ErrUnexpectedRevertShape.
func (ep *EntryPoint) GetSenderAddress(ctx context.Context, initCode []byte) (common.Address, error) {
	err := ep.contract.Call(&bind.CallOpts{Context: ctx}, nil, "getSenderAddress", initCode)
	if err == nil {
		return common.Address{}, fmt.Errorf("%w: getSenderAddress returned without reverting", userop.ErrUnexpectedRevertShape)
	}

	payload, ok := RevertData(err)
	if !ok {
		return common.Address{}, collaboratorError("entrypoint.getSenderAddress", err)
	}
	if len(payload) < common.AddressLength {
		return common.Address{}, fmt.Errorf("%w: %d byte revert payload: %w", userop.ErrUnexpectedRevertShape, len(payload), err)
	}
	for _, name := range []string{"FailedOp", "FailedOpWithRevert"} {
		if HasSelector(payload, EntryPointABI.Errors[name].ID) {
			return common.Address{}, fmt.Errorf("%w: factory failed with %s: %w", userop.ErrUnexpectedRevertShape, name, err)
		}
	}
	// a plain revert or panic means the call did not reach getSenderAddress
	if HasSelector(payload, errorStringID) || HasSelector(payload, panicID) {
		return common.Address{}, fmt.Errorf("%w: %s revert: %w", userop.ErrUnexpectedRevertShape, builtinErrorName(payload), err)
	}

	return common.BytesToAddress(payload[len(payload)-common.AddressLength:]), nil
}

// GetUserOpHash asks the entry point for the canonical hash of op. The hash binds the
// entry point address and the chain id, so it is never derived locally.
func (ep *EntryPoint) GetUserOpHash(ctx context.Context, op *userop.PackedUserOperation) (common.Hash, error) {
	var out []interface{}
	if err := ep.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getUserOpHash", *op); err != nil {
		return common.Hash{}, collaboratorError("entrypoint.getUserOpHash", err)
	}
	return common.Hash(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
}

// BalanceOf returns the deposit held by the entry point for account.
func (ep *EntryPoint) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	var out []interface{}
	if err := ep.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", account); err != nil {
		return nil, collaboratorError("entrypoint.balanceOf", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// HandleOps submits ops in one transaction, paying the bundler refund to beneficiary.
// Validation failures surface here as gas estimation errors carrying the revert payload.
func (ep *EntryPoint) HandleOps(opts *bind.TransactOpts, ops []userop.PackedUserOperation, beneficiary common.Address) (*types.Transaction, error) {
	return ep.contract.Transact(opts, "handleOps", ops, beneficiary)
}

// DepositTo adds opts.Value to the entry point deposit of account.
func (ep *EntryPoint) DepositTo(opts *bind.TransactOpts, account common.Address) (*types.Transaction, error) {
	return ep.contract.Transact(opts, "depositTo", account)
}

// ParseUserOperationEvents returns the UserOperationEvent logs this entry point emitted in receipt.
func (ep *EntryPoint) ParseUserOperationEvents(receipt *types.Receipt) ([]UserOperationEvent, error) {
	var events []UserOperationEvent
	for _, log := range receipt.Logs {
		if log.Address != ep.address || len(log.Topics) == 0 || log.Topics[0] != userOpEventTopic0 {
			continue
		}

		var ev UserOperationEvent
		if err := ep.contract.UnpackLog(&ev, "UserOperationEvent", *log); err != nil {
			return nil, fmt.Errorf("unpack UserOperationEvent: %w", err)
		}
		ev.Raw = *log
		events = append(events, ev)
	}
	return events, nil
}

// ParseRevertReasons returns the UserOperationRevertReason logs in receipt.
func (ep *EntryPoint) ParseRevertReasons(receipt *types.Receipt) ([]UserOperationRevertReason, error) {
	topic := EntryPointABI.Events["UserOperationRevertReason"].ID

	var reasons []UserOperationRevertReason
	for _, log := range receipt.Logs {
		if log.Address != ep.address || len(log.Topics) == 0 || log.Topics[0] != topic {
			continue
		}

		var r UserOperationRevertReason
		if err := ep.contract.UnpackLog(&r, "UserOperationRevertReason", *log); err != nil {
			return nil, fmt.Errorf("unpack UserOperationRevertReason: %w", err)
		}
		r.Raw = *log
		reasons = append(reasons, r)
	}
	return reasons, nil
}
