package preset

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/samber/lo"

	"github.com/AvaProtocol/safe-userop/core/chainio/aa"
	"github.com/AvaProtocol/safe-userop/pkg/erc4337/userop"
	"github.com/AvaProtocol/safe-userop/pkg/logger"
)

// EntryPointSubmitter is the write side of the entry point. *aa.EntryPoint satisfies it.
type EntryPointSubmitter interface {
	HandleOps(opts *bind.TransactOpts, ops []userop.PackedUserOperation, beneficiary common.Address) (*types.Transaction, error)
	ParseUserOperationEvents(receipt *types.Receipt) ([]aa.UserOperationEvent, error)
	ParseRevertReasons(receipt *types.Receipt) ([]aa.UserOperationRevertReason, error)
}

// ReceiptWaiter blocks until tx is included.
type ReceiptWaiter interface {
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// MinedWaiter waits with bind.WaitMined, which polls the node once per second.
type MinedWaiter struct {
	Backend bind.DeployBackend
}

func (w MinedWaiter) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(ctx, w.Backend, tx)
}

// SubmissionResult describes a mined handleOps transaction.
type SubmissionResult struct {
	TxHash        common.Hash
	Receipt       *types.Receipt
	Events        []aa.UserOperationEvent
	RevertReasons []aa.UserOperationRevertReason
	Elapsed       time.Duration
}

// Submitter sends handleOps and waits for one confirmation. There is no retry.
type Submitter struct {
	entrypoint EntryPointSubmitter
	waiter     ReceiptWaiter
	decoder    RevertDecoder
	auth       *bind.TransactOpts
	logger     logger.Logger
}

type SubmitterOption func(*Submitter)

func WithSubmitterLogger(l logger.Logger) SubmitterOption {
	return func(s *Submitter) {
		s.logger = logger.EnsureLogger(l)
	}
}

// NewSubmitter wires the submission driver. auth signs the outer handleOps transaction;
// decoder interprets revert payloads.
func NewSubmitter(entrypoint EntryPointSubmitter, waiter ReceiptWaiter, decoder RevertDecoder, auth *bind.TransactOpts, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		entrypoint: entrypoint,
		waiter:     waiter,
		decoder:    decoder,
		auth:       auth,
		logger:     logger.EnsureLogger(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Submitter) revertError(stage Stage, payload []byte, cause error) error {
	reason := s.decoder.Decode(payload)

	sentinel := userop.ErrOperationReverted
	if reason.IsSignatureFailure() {
		sentinel = userop.ErrSignatureRejected
	}

	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &StageError{Stage: stage, Err: err, Raw: payload, Revert: &reason}
}

// Submit sends ops to the entry point with beneficiary receiving the refund, then waits
// for the transaction receipt. When the chain rejects the call its revert payload is
// decoded on a best effort basis; the raw bytes are always kept on the returned error.
// A mined transaction is returned even when an operation inside it failed.
func (s *Submitter) Submit(ctx context.Context, ops []userop.PackedUserOperation, beneficiary common.Address) (*SubmissionResult, error) {
	if s.auth == nil {
		return nil, stageError(StageSubmit, ErrMissingSigner)
	}
	if len(ops) == 0 {
		return nil, stageError(StageSubmit, ErrNoOperations)
	}
	for i := range ops {
		if !ops[i].IsSigned() {
			return nil, stageError(StageSubmit, fmt.Errorf("operation %d is not signed", i))
		}
	}

	opts := *s.auth
	opts.Context = ctx

	started := time.Now()
	tx, err := s.entrypoint.HandleOps(&opts, ops, beneficiary)
	if err != nil {
		if payload, ok := aa.RevertData(err); ok {
			se := s.revertError(StageSubmit, payload, err)
			s.logger.Error("handleOps rejected", "error", se.Error())
			return nil, se
		}
		return nil, stageError(StageSubmit, fmt.Errorf("%w: handleOps: %w", userop.ErrCollaboratorUnavailable, err))
	}
	s.logger.Info("handleOps sent", "tx", tx.Hash().Hex(), "ops", len(ops))

	receipt, err := s.waiter.WaitMined(ctx, tx)
	if err != nil {
		return nil, stageError(StageConfirm, fmt.Errorf("%w: wait for %s: %w", userop.ErrCollaboratorUnavailable, tx.Hash().Hex(), err))
	}

	result := &SubmissionResult{
		TxHash:  tx.Hash(),
		Receipt: receipt,
		Elapsed: time.Since(started),
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return result, &StageError{Stage: StageConfirm, Err: fmt.Errorf("%w: handleOps transaction %s failed", userop.ErrOperationReverted, tx.Hash().Hex())}
	}

	if result.Events, err = s.entrypoint.ParseUserOperationEvents(receipt); err != nil {
		return result, stageError(StageConfirm, err)
	}
	if result.RevertReasons, err = s.entrypoint.ParseRevertReasons(receipt); err != nil {
		return result, stageError(StageConfirm, err)
	}

	failed := lo.Filter(result.Events, func(ev aa.UserOperationEvent, _ int) bool {
		return !ev.Success
	})
	if len(failed) > 0 {
		var payload []byte
		if reason, ok := lo.Find(result.RevertReasons, func(r aa.UserOperationRevertReason) bool {
			return r.UserOpHash == failed[0].UserOpHash
		}); ok {
			payload = reason.RevertReason
		}
		return result, s.revertError(StageConfirm, payload, fmt.Errorf("operation %s call failed", common.Hash(failed[0].UserOpHash).Hex()))
	}

	s.logger.Info("handleOps confirmed",
		"tx", tx.Hash().Hex(),
		"block", receipt.BlockNumber,
		"gas_used", receipt.GasUsed,
		"elapsed", result.Elapsed.String(),
	)
	return result, nil
}
