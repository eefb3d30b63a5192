package relay

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/AvaProtocol/safe-userop/core/chainio/aa"
	"github.com/AvaProtocol/safe-userop/pkg/byte4"
	"github.com/AvaProtocol/safe-userop/pkg/erc4337/preset"
	"github.com/AvaProtocol/safe-userop/pkg/erc4337/userop"
)

// SignedOperation is an operation ready for handleOps plus the SafeOp envelope of the
// same operation for the Safe owners. The two signatures are independent.
type SignedOperation struct {
	Sender     common.Address              `json:"sender"`
	UserOpHash common.Hash                 `json:"userOpHash"`
	Operation  *userop.PackedUserOperation `json:"operation"`
	// token method the account executes
	Call string `json:"call"`

	TypedData      apitypes.TypedData `json:"typedData"`
	TypedDataHash  common.Hash        `json:"typedDataHash"`
	TypedSignature hexutil.Bytes      `json:"typedSignature"`
}

// SignOperation builds and signs the configured transfer without submitting it. The
// typed data is bound to the module account and the configured typed-data chain id.
func (r *Relay) SignOperation(ctx context.Context) (*SignedOperation, error) {
	identity, err := r.identity(ctx)
	if err != nil {
		return nil, err
	}

	transfer, err := r.packTransfer()
	if err != nil {
		return nil, err
	}
	call, err := byte4.GetMethodFromCalldata(aa.TokenABI, transfer)
	if err != nil {
		return nil, err
	}
	gas, err := r.gasParams(ctx)
	if err != nil {
		return nil, err
	}

	op, err := r.builder().Build(ctx, identity, preset.Action{Target: r.config.Token, Calldata: transfer}, gas, r.config.PaymasterGas)
	if err != nil {
		return nil, err
	}

	signed, hash, err := preset.NewEngine(r.entrypoint).Sign(ctx, op, r.config.PrivateKey)
	if err != nil {
		return nil, err
	}

	chainID := r.config.TypedDataChainID
	typedSig, err := preset.SignTypedData(op, identity.Sender, chainID, r.config.PrivateKey)
	if err != nil {
		return nil, err
	}
	typedHash, err := userop.SafeOpHash(op, identity.Sender, chainID)
	if err != nil {
		return nil, err
	}

	return &SignedOperation{
		Sender:         identity.Sender,
		UserOpHash:     hash,
		Operation:      signed,
		Call:           call.Sig,
		TypedData:      preset.TypedDataEnvelope(op, identity.Sender, chainID),
		TypedDataHash:  typedHash,
		TypedSignature: typedSig,
	}, nil
}
