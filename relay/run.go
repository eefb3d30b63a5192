package relay

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AvaProtocol/safe-userop/core/chainio/aa"
	"github.com/AvaProtocol/safe-userop/core/config"
	"github.com/AvaProtocol/safe-userop/pkg/erc4337/preset"
)

// RunSummary reports one token transfer through the module account.
type RunSummary struct {
	RunID      string
	State      string
	Sender     common.Address
	UserOpHash common.Hash
	TxHash     common.Hash
	TxURL      string
	Minted     bool

	// whole token units, empty when the read failed
	BalanceBefore string
	BalanceAfter  string

	Events []aa.UserOperationEvent
}

func (r *Relay) pipeline() *preset.Pipeline {
	return preset.NewPipeline(
		r.builder(),
		preset.NewEngine(r.entrypoint),
		preset.NewSubmitter(r.entrypoint, r.waiter, preset.NewRevertDecoder(aa.EntryPointABI), r.auth,
			preset.WithSubmitterLogger(r.logger)),
		preset.WithRecorder(r.metrics),
		preset.WithPipelineLogger(r.logger),
	)
}

// Run transfers the configured token amount from the Safe to the recipient with a user
// operation sent straight to the entry point. The Safe is refunded as beneficiary.
func (r *Relay) Run(ctx context.Context) (*RunSummary, error) {
	identity, err := r.identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := preset.RequireModule(ctx, r.safe(), identity); err != nil {
		return nil, err
	}

	token := aa.NewToken(r.config.Token, r.backend)
	minted, err := preset.EnsureTokenBalance(ctx, token, r.waiter, r.auth, r.config.Safe, r.config.MintAmount, r.logger)
	if err != nil {
		return nil, err
	}
	if minted {
		r.metrics.IncFunding("mint")
	}

	transfer, err := r.packTransfer()
	if err != nil {
		return nil, err
	}
	gas, err := r.gasParams(ctx)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{Sender: identity.Sender, Minted: minted}
	summary.BalanceBefore = r.snapshot(ctx, token)

	run, err := r.pipeline().Execute(ctx, preset.Request{
		Identity:    identity,
		Action:      preset.Action{Target: r.config.Token, Calldata: transfer},
		Gas:         gas,
		Paymaster:   r.config.PaymasterGas,
		Beneficiary: r.config.Safe,
		Key:         r.config.PrivateKey,
	})
	summary.RunID = run.ID.String()
	summary.State = run.State.String()
	summary.UserOpHash = run.Hash
	if run.Result != nil {
		summary.TxHash = run.Result.TxHash
		summary.TxURL = r.env.TxURL(run.Result.TxHash)
		summary.Events = run.Result.Events
	}
	if err != nil {
		return summary, err
	}

	summary.BalanceAfter = r.snapshot(ctx, token)
	return summary, nil
}

func (r *Relay) packTransfer() ([]byte, error) {
	return aa.PackTokenTransfer(r.config.Recipient, r.config.TransferAmount)
}

type balanceReader interface {
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
}

// snapshot reads the Safe token balance for the summary. A failed read is logged only.
func (r *Relay) snapshot(ctx context.Context, token balanceReader) string {
	balance, err := token.BalanceOf(ctx, r.config.Safe)
	if err != nil {
		r.logger.Warn("cannot read safe token balance", "safe", r.config.Safe.Hex(), "err", err)
		return ""
	}
	return config.FormatUnits(balance, r.config.TokenDecimals)
}
