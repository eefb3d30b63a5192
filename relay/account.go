package relay

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AccountInfo describes the module account derived for the configured Safe.
type AccountInfo struct {
	Owner         common.Address `json:"owner"`
	Safe          common.Address `json:"safe"`
	Factory       common.Address `json:"factory"`
	Sender        common.Address `json:"sender"`
	InitCode      hexutil.Bytes  `json:"initCode"`
	Deployed      bool           `json:"deployed"`
	ModuleEnabled bool           `json:"moduleEnabled"`
	Nonce         *big.Int       `json:"nonce"`
	Deposit       *big.Int       `json:"deposit"`
}

// Account derives the counterfactual sender and reads its state. Nothing is sent.
func (r *Relay) Account(ctx context.Context) (*AccountInfo, error) {
	identity, err := r.identity(ctx)
	if err != nil {
		return nil, err
	}

	code, err := r.backend.CodeAt(ctx, identity.Sender, nil)
	if err != nil {
		return nil, err
	}
	nonce, err := r.entrypoint.GetNonce(ctx, identity.Sender, nil)
	if err != nil {
		return nil, err
	}
	deposit, err := r.entrypoint.BalanceOf(ctx, identity.Sender)
	if err != nil {
		return nil, err
	}
	enabled, err := r.safe().IsModuleEnabled(ctx, identity.Sender)
	if err != nil {
		return nil, err
	}

	return &AccountInfo{
		Owner:         r.config.Owner,
		Safe:          identity.Safe,
		Factory:       identity.Factory,
		Sender:        identity.Sender,
		InitCode:      identity.InitCode,
		Deployed:      len(code) > 0,
		ModuleEnabled: enabled,
		Nonce:         nonce,
		Deposit:       deposit,
	}, nil
}
