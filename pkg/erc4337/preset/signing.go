package preset

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/AvaProtocol/safe-userop/core/chainio/signer"
	"github.com/AvaProtocol/safe-userop/pkg/erc4337/userop"
)

// OperationHasher returns the entry point's canonical hash of an operation.
type OperationHasher interface {
	GetUserOpHash(ctx context.Context, op *userop.PackedUserOperation) (common.Hash, error)
}

// Engine hashes and signs operations. The plain EIP-191 signature over the entry point
// hash is what handleOps validates; the SafeOp typed-data envelope is produced separately
// for the Safe owner set and is never mixed into the submitted signature.
type Engine struct {
	hasher OperationHasher
}

func NewEngine(hasher OperationHasher) *Engine {
	return &Engine{hasher: hasher}
}

// OperationHash fetches the canonical hash. The signature field of op does not affect it.
func (e *Engine) OperationHash(ctx context.Context, op *userop.PackedUserOperation) (common.Hash, error) {
	hash, err := e.hasher.GetUserOpHash(ctx, op)
	if err != nil {
		return common.Hash{}, stageError(StageHash, err)
	}
	return hash, nil
}

// SignPlain produces the EIP-191 personal-message signature of the 32 hash bytes.
func SignPlain(hash common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, stageError(StageSign, ErrMissingSigner)
	}
	sig, err := signer.SignMessage(key, hash.Bytes())
	if err != nil {
		return nil, stageError(StageSign, err)
	}
	return sig, nil
}

// Sign hashes op and returns a signed copy together with the hash it signed.
// op itself is left untouched.
func (e *Engine) Sign(ctx context.Context, op *userop.PackedUserOperation, key *ecdsa.PrivateKey) (*userop.PackedUserOperation, common.Hash, error) {
	hash, err := e.OperationHash(ctx, op)
	if err != nil {
		return nil, common.Hash{}, err
	}

	sig, err := SignPlain(hash, key)
	if err != nil {
		return nil, hash, err
	}

	signed := op.Copy()
	signed.Signature = sig
	return signed, hash, nil
}

// TypedDataEnvelope returns the SafeOp EIP-712 envelope of op for the given verifying
// contract and chain. It is a pure transform.
func TypedDataEnvelope(op *userop.PackedUserOperation, verifyingContract common.Address, chainID *big.Int) apitypes.TypedData {
	return userop.SafeOpTypedData(op, verifyingContract, chainID)
}

// SignTypedData signs the SafeOp envelope of op.
func SignTypedData(op *userop.PackedUserOperation, verifyingContract common.Address, chainID *big.Int, key *ecdsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, stageError(StageSign, ErrMissingSigner)
	}
	if chainID == nil {
		return nil, stageError(StageSign, fmt.Errorf("chain id is required for typed data"))
	}

	sig, err := signer.SignTypedData(key, TypedDataEnvelope(op, verifyingContract, chainID))
	if err != nil {
		return nil, stageError(StageSign, err)
	}
	return sig, nil
}
