package preset

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/AvaProtocol/safe-userop/pkg/logger"
)

// MintableToken is the token surface used to seed a Safe before a transfer.
type MintableToken interface {
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	Mint(opts *bind.TransactOpts, to common.Address, amount *big.Int) (*types.Transaction, error)
}

// EnsureTokenBalance mints amount to holder when its balance is zero and waits for the
// mint to be mined. It reports whether a mint happened.
func EnsureTokenBalance(ctx context.Context, token MintableToken, waiter ReceiptWaiter, auth *bind.TransactOpts, holder common.Address, amount *big.Int, lgr logger.Logger) (bool, error) {
	log := logger.EnsureLogger(lgr)

	balance, err := token.BalanceOf(ctx, holder)
	if err != nil {
		return false, stageError(StageFund, err)
	}
	if balance.Sign() > 0 {
		return false, nil
	}
	if auth == nil {
		return false, stageError(StageFund, ErrMissingSigner)
	}

	opts := *auth
	opts.Context = ctx
	tx, err := token.Mint(&opts, holder, amount)
	if err != nil {
		return false, stageError(StageFund, fmt.Errorf("mint: %w", err))
	}
	log.Info("minting tokens", "holder", holder.Hex(), "amount", amount.String(), "tx", tx.Hash().Hex())

	receipt, err := waiter.WaitMined(ctx, tx)
	if err != nil {
		return false, stageError(StageFund, fmt.Errorf("wait for mint: %w", err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return false, stageError(StageFund, fmt.Errorf("mint transaction %s failed", tx.Hash().Hex()))
	}
	return true, nil
}

// Depositor funds the entry point deposit of an account.
type Depositor interface {
	DepositTo(opts *bind.TransactOpts, account common.Address) (*types.Transaction, error)
}

// ValueSender sends a plain value transfer.
type ValueSender interface {
	Transfer(opts *bind.TransactOpts) (*types.Transaction, error)
}

// FundPaymaster deposits amount into the entry point on behalf of the paymaster and sends
// the same amount to the paymaster itself. Needed after a paymaster redeploy.
func FundPaymaster(ctx context.Context, entrypoint Depositor, paymaster common.Address, wallet ValueSender, waiter ReceiptWaiter, auth *bind.TransactOpts, amount *big.Int) ([]common.Hash, error) {
	if auth == nil {
		return nil, stageError(StageFund, ErrMissingSigner)
	}
	opts := *auth
	opts.Context = ctx
	opts.Value = new(big.Int).Set(amount)

	depositTx, err := entrypoint.DepositTo(&opts, paymaster)
	if err != nil {
		return nil, stageError(StageFund, fmt.Errorf("depositTo: %w", err))
	}
	if err := waitSuccessful(ctx, waiter, depositTx); err != nil {
		return nil, err
	}

	opts.Value = new(big.Int).Set(amount)
	sendTx, err := wallet.Transfer(&opts)
	if err != nil {
		return []common.Hash{depositTx.Hash()}, stageError(StageFund, fmt.Errorf("transfer: %w", err))
	}
	if err := waitSuccessful(ctx, waiter, sendTx); err != nil {
		return []common.Hash{depositTx.Hash()}, err
	}

	return []common.Hash{depositTx.Hash(), sendTx.Hash()}, nil
}

func waitSuccessful(ctx context.Context, waiter ReceiptWaiter, tx *types.Transaction) error {
	receipt, err := waiter.WaitMined(ctx, tx)
	if err != nil {
		return stageError(StageFund, fmt.Errorf("wait for %s: %w", tx.Hash().Hex(), err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return stageError(StageFund, fmt.Errorf("transaction %s failed", tx.Hash().Hex()))
	}
	return nil
}
