package aa

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Safe is the read-only view of the multi-owner wallet the module account acts for.
// Enabling modules is done with the Safe tooling, not here.
type Safe struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewSafe(address common.Address, backend bind.ContractCaller) *Safe {
	return &Safe{
		address:  address,
		contract: bind.NewBoundContract(address, safeABI, backend, nil, nil),
	}
}

func (s *Safe) Address() common.Address {
	return s.address
}

func (s *Safe) IsModuleEnabled(ctx context.Context, module common.Address) (bool, error) {
	var out []interface{}
	if err := s.contract.Call(&bind.CallOpts{Context: ctx}, &out, "isModuleEnabled", module); err != nil {
		return false, collaboratorError("safe.isModuleEnabled", err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// Token binds a mintable ERC-20.
type Token struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewToken(address common.Address, backend bind.ContractBackend) *Token {
	return &Token{
		address:  address,
		contract: bind.NewBoundContract(address, TokenABI, backend, backend, backend),
	}
}

func (t *Token) Address() common.Address {
	return t.address
}

func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	var out []interface{}
	if err := t.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", account); err != nil {
		return nil, collaboratorError("token.balanceOf", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (t *Token) Mint(opts *bind.TransactOpts, to common.Address, amount *big.Int) (*types.Transaction, error) {
	return t.contract.Transact(opts, "mint", to, amount)
}
