package relay

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AvaProtocol/safe-userop/core/chainio/aa"
	"github.com/AvaProtocol/safe-userop/pkg/erc4337/preset"
)

var ErrNoPaymaster = errors.New("relay: no paymaster configured")

// FundPaymaster tops up the paymaster after a redeploy: an entry point deposit on its
// behalf and the same amount sent to the paymaster itself.
func (r *Relay) FundPaymaster(ctx context.Context) ([]common.Hash, error) {
	if r.config.Paymaster == (common.Address{}) {
		return nil, ErrNoPaymaster
	}

	hashes, err := preset.FundPaymaster(ctx,
		r.entrypoint,
		r.config.Paymaster,
		aa.NewValueRecipient(r.config.Paymaster, r.backend),
		r.waiter,
		r.auth,
		r.config.DepositAmount,
	)
	for range hashes {
		r.metrics.IncFunding("deposit")
	}
	if err != nil {
		return hashes, err
	}

	r.logger.Info("paymaster funded",
		"paymaster", r.config.Paymaster.Hex(),
		"amount", r.config.DepositAmount.String(),
		"txs", len(hashes),
	)
	return hashes, nil
}
