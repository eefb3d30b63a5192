package preset

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/safe-userop/core/chainio/signer"
	"github.com/AvaProtocol/safe-userop/pkg/erc4337/userop"
)

func builtTestOperation(t *testing.T, ep *fakeEntryPoint) *userop.PackedUserOperation {
	t.Helper()
	op, err := NewBuilder(ep, ep).Build(context.Background(), testIdentity(t), testAction(t), DefaultGasParams(), testPaymasterParams())
	require.NoError(t, err)
	return op
}

func TestEngineSignLeavesInputUntouched(t *testing.T) {
	owner := crypto.PubkeyToAddress(ownerKey(t).PublicKey)
	ep := newFakeEntryPoint(owner)
	op := builtTestOperation(t, ep)

	signed, hash, err := NewEngine(ep).Sign(context.Background(), op, ownerKey(t))
	require.NoError(t, err)

	assert.False(t, op.IsSigned())
	assert.True(t, signed.IsSigned())
	assert.Len(t, signed.Signature, 65)
	assert.Equal(t, localUserOpHash(op, testEntryPoint, testChainID), hash)

	recovered, err := signer.RecoverMessageSigner(hash.Bytes(), signed.Signature)
	require.NoError(t, err)
	assert.Equal(t, owner, recovered)
}

func TestOperationHashIgnoresSignature(t *testing.T) {
	ep := newFakeEntryPoint(crypto.PubkeyToAddress(ownerKey(t).PublicKey))
	engine := NewEngine(ep)
	op := builtTestOperation(t, ep)

	before, err := engine.OperationHash(context.Background(), op)
	require.NoError(t, err)

	op.Signature = []byte{0x01, 0x02}
	after, err := engine.OperationHash(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSignPlainWithoutKey(t *testing.T) {
	_, err := SignPlain(localUserOpHash(builtTestOperation(t, newFakeEntryPoint(testSafe)), testEntryPoint, testChainID), nil)
	assert.ErrorIs(t, err, ErrMissingSigner)
}

func TestSignTypedDataRecoversOwner(t *testing.T) {
	owner := crypto.PubkeyToAddress(ownerKey(t).PublicKey)
	op := builtTestOperation(t, newFakeEntryPoint(owner))

	sig, err := SignTypedData(op, testSender, testChainID, ownerKey(t))
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	digest, err := userop.SafeOpHash(op, testSender, testChainID)
	require.NoError(t, err)
	recovered, err := signer.RecoverDigestSigner(digest.Bytes(), sig)
	require.NoError(t, err)
	assert.Equal(t, owner, recovered)

	// the typed signature is not valid as the plain entry point signature
	plainHash := localUserOpHash(op, testEntryPoint, testChainID)
	assert.False(t, signer.Verify(plainHash.Bytes(), sig, owner))
}

func TestSignTypedDataRequiresChainAndKey(t *testing.T) {
	op := builtTestOperation(t, newFakeEntryPoint(testSafe))

	_, err := SignTypedData(op, testSender, nil, ownerKey(t))
	assert.Error(t, err)

	_, err = SignTypedData(op, testSender, testChainID, nil)
	assert.ErrorIs(t, err, ErrMissingSigner)
}

func TestTypedDataEnvelopeIsPure(t *testing.T) {
	op := builtTestOperation(t, newFakeEntryPoint(testSafe))
	original := op.Copy()

	envelope := TypedDataEnvelope(op, testSender, testChainID)
	assert.Equal(t, userop.SafeOpPrimaryType, envelope.PrimaryType)
	assert.Equal(t, original, op)
}
