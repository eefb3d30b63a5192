package preset

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/safe-userop/core/chainio/aa"
	"github.com/AvaProtocol/safe-userop/core/chainio/signer"
	"github.com/AvaProtocol/safe-userop/pkg/erc4337/userop"
)

var (
	testChainID    = big.NewInt(31337)
	testEntryPoint = aa.DefaultEntrypointAddress
	testFactory    = common.HexToAddress("0x00000000000000000000000000000000000000fa")
	testSafe       = common.HexToAddress("0x00000000000000000000000000000000000005af")
	testSender     = common.HexToAddress("0x5a0b54d5dC17e0AadC383d2db43B0a0D3E029c4c")
	testToken      = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testPaymaster  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	testRecipient  = common.HexToAddress("0xe98cEf1748d2874F09dfFbeC69Dd571A0c02C050")

	uint256Type, _ = abi.NewType("uint256", "", nil)
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	addressType, _ = abi.NewType("address", "", nil)
	stringType, _  = abi.NewType("string", "", nil)
)

type rpcRevert struct {
	data string
}

func (e *rpcRevert) Error() string          { return "execution reverted" }
func (e *rpcRevert) ErrorData() interface{} { return e.data }

func mustKey(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	t.Helper()
	key, err := signer.ParsePrivateKey(hexKey)
	require.NoError(t, err)
	return key
}

// fixed keys: the owner of the test account and an unrelated signer
func ownerKey(t *testing.T) *ecdsa.PrivateKey {
	return mustKey(t, "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
}

func strangerKey(t *testing.T) *ecdsa.PrivateKey {
	return mustKey(t, "0x59c6995e998f97a0a84e7b8e3a0c8e6fc7ee4aac3f2bd8b0f4c6f4d7e64b6d47")
}

func encodeCustomError(name string, args ...interface{}) []byte {
	customErr := aa.EntryPointABI.Errors[name]
	packed, err := customErr.Inputs.Pack(args...)
	if err != nil {
		panic(err)
	}
	return append(common.CopyBytes(customErr.ID[:4]), packed...)
}

func encodeErrorString(msg string) []byte {
	packed, err := abi.Arguments{{Type: stringType}}.Pack(msg)
	if err != nil {
		panic(err)
	}
	return append(common.FromHex("0x08c379a0"), packed...)
}

// localUserOpHash mirrors the EntryPoint v0.7 hash so the fake can check signatures.
func localUserOpHash(op *userop.PackedUserOperation, entrypoint common.Address, chainID *big.Int) common.Hash {
	packed, err := abi.Arguments{
		{Type: addressType}, {Type: uint256Type}, {Type: bytes32Type}, {Type: bytes32Type},
		{Type: bytes32Type}, {Type: uint256Type}, {Type: bytes32Type}, {Type: bytes32Type},
	}.Pack(
		op.Sender,
		op.Nonce,
		crypto.Keccak256Hash(op.InitCode),
		crypto.Keccak256Hash(op.CallData),
		op.AccountGasLimits,
		op.PreVerificationGas,
		op.GasFees,
		crypto.Keccak256Hash(op.PaymasterAndData),
	)
	if err != nil {
		panic(err)
	}

	enc, err := abi.Arguments{{Type: bytes32Type}, {Type: addressType}, {Type: uint256Type}}.Pack(
		crypto.Keccak256Hash(packed), entrypoint, chainID,
	)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}

// fakeEntryPoint validates operations the way the contract does for the parts the relay
// depends on: nonce sequencing, owner signature and deployment through init code.
type fakeEntryPoint struct {
	mu sync.Mutex

	owner     common.Address
	nonces    map[common.Address]*big.Int
	deployed  map[common.Address]bool
	receipts  map[common.Hash]*types.Receipt
	parser    *aa.EntryPoint
	txCounter uint64

	innerRevert string
	nonceErr    error
	hashErr     error
	sendErr     error

	codeCalls  int
	nonceCalls int
	hashCalls  int
}

func newFakeEntryPoint(owner common.Address) *fakeEntryPoint {
	return &fakeEntryPoint{
		owner:    owner,
		nonces:   map[common.Address]*big.Int{},
		deployed: map[common.Address]bool{},
		receipts: map[common.Hash]*types.Receipt{},
		parser:   aa.NewEntryPoint(testEntryPoint, nil),
	}
}

func (f *fakeEntryPoint) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codeCalls++
	if f.deployed[account] {
		return []byte{0x60, 0x80, 0x60, 0x40}, nil
	}
	return nil, nil
}

func (f *fakeEntryPoint) GetNonce(ctx context.Context, sender common.Address, key *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonceCalls++
	if f.nonceErr != nil {
		return nil, f.nonceErr
	}
	if n, ok := f.nonces[sender]; ok {
		return new(big.Int).Set(n), nil
	}
	return big.NewInt(0), nil
}

func (f *fakeEntryPoint) GetSenderAddress(ctx context.Context, initCode []byte) (common.Address, error) {
	if len(initCode) < common.AddressLength {
		return common.Address{}, userop.ErrUnexpectedRevertShape
	}
	return testSender, nil
}

func (f *fakeEntryPoint) GetUserOpHash(ctx context.Context, op *userop.PackedUserOperation) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hashCalls++
	if f.hashErr != nil {
		return common.Hash{}, f.hashErr
	}
	return localUserOpHash(op, testEntryPoint, testChainID), nil
}

func (f *fakeEntryPoint) HandleOps(opts *bind.TransactOpts, ops []userop.PackedUserOperation, beneficiary common.Address) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return nil, f.sendErr
	}

	// validation phase: any failure reverts the whole batch
	for i := range ops {
		op := &ops[i]
		current := f.nonces[op.Sender]
		if current == nil {
			current = big.NewInt(0)
		}
		if op.Nonce.Cmp(current) != 0 {
			return nil, &rpcRevert{data: hexutil.Encode(encodeCustomError("FailedOp", big.NewInt(int64(i)), "AA25 invalid account nonce"))}
		}
		if !f.deployed[op.Sender] && !op.HasInitCode() {
			return nil, &rpcRevert{data: hexutil.Encode(encodeCustomError("FailedOp", big.NewInt(int64(i)), "AA20 account not deployed"))}
		}

		hash := localUserOpHash(op, testEntryPoint, testChainID)
		if !signer.Verify(hash.Bytes(), op.Signature, f.owner) {
			return nil, &rpcRevert{data: hexutil.Encode(encodeCustomError("FailedOp", big.NewInt(int64(i)), "AA24 signature error"))}
		}
	}

	// execution phase
	f.txCounter++
	tx := types.NewTx(&types.LegacyTx{Nonce: f.txCounter, To: &testEntryPoint, Gas: 1_000_000})
	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(int64(100 + f.txCounter)),
		GasUsed:     150_000,
	}
	for i := range ops {
		op := &ops[i]
		hash := localUserOpHash(op, testEntryPoint, testChainID)
		f.deployed[op.Sender] = true
		f.nonces[op.Sender] = new(big.Int).Add(op.Nonce, big.NewInt(1))

		var paymaster common.Address
		if pm, err := userop.ParsePaymasterData(op.PaymasterAndData); err == nil && pm != nil {
			paymaster = pm.Paymaster
		}

		success := f.innerRevert == ""
		if !success {
			receipt.Logs = append(receipt.Logs, revertReasonLog(hash, op, encodeErrorString(f.innerRevert)))
		}
		receipt.Logs = append(receipt.Logs, userOpEventLog(hash, op, paymaster, success))
	}
	f.receipts[tx.Hash()] = receipt
	return tx, nil
}

func (f *fakeEntryPoint) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	receipt, ok := f.receipts[tx.Hash()]
	if !ok {
		return nil, errors.New("transaction not found")
	}
	return receipt, nil
}

func (f *fakeEntryPoint) ParseUserOperationEvents(receipt *types.Receipt) ([]aa.UserOperationEvent, error) {
	return f.parser.ParseUserOperationEvents(receipt)
}

func (f *fakeEntryPoint) ParseRevertReasons(receipt *types.Receipt) ([]aa.UserOperationRevertReason, error) {
	return f.parser.ParseRevertReasons(receipt)
}

func userOpEventLog(hash common.Hash, op *userop.PackedUserOperation, paymaster common.Address, success bool) *types.Log {
	event := aa.EntryPointABI.Events["UserOperationEvent"]
	data, err := event.Inputs.NonIndexed().Pack(op.Nonce, success, big.NewInt(1_000_000_000_000), big.NewInt(120_000))
	if err != nil {
		panic(err)
	}
	return &types.Log{
		Address: testEntryPoint,
		Topics: []common.Hash{
			event.ID,
			hash,
			common.BytesToHash(op.Sender.Bytes()),
			common.BytesToHash(paymaster.Bytes()),
		},
		Data: data,
	}
}

func revertReasonLog(hash common.Hash, op *userop.PackedUserOperation, reason []byte) *types.Log {
	event := aa.EntryPointABI.Events["UserOperationRevertReason"]
	data, err := event.Inputs.NonIndexed().Pack(op.Nonce, reason)
	if err != nil {
		panic(err)
	}
	return &types.Log{
		Address: testEntryPoint,
		Topics:  []common.Hash{event.ID, hash, common.BytesToHash(op.Sender.Bytes())},
		Data:    data,
	}
}

func testDecoderABI() abi.ABI {
	return aa.EntryPointABI
}

func testIdentity(t *testing.T) *AccountIdentity {
	t.Helper()
	initCode, err := aa.GetInitCode(testFactory, testSafe)
	require.NoError(t, err)
	return &AccountIdentity{Safe: testSafe, Factory: testFactory, InitCode: initCode, Sender: testSender}
}

func testAction(t *testing.T) Action {
	t.Helper()
	transfer, err := aa.PackTokenTransfer(testRecipient, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	require.NoError(t, err)
	return Action{Target: testToken, Calldata: transfer}
}

func testPaymasterParams() *PaymasterParams {
	return &PaymasterParams{
		Address:              testPaymaster,
		VerificationGasLimit: new(big.Int).Set(DEFAULT_PAYMASTER_VERIFICATION_GAS_LIMIT),
		PostOpGasLimit:       new(big.Int).Set(DEFAULT_PAYMASTER_POST_OP_GAS_LIMIT),
	}
}

func testTransactor(t *testing.T) *bind.TransactOpts {
	t.Helper()
	opts, err := bind.NewKeyedTransactorWithChainID(ownerKey(t), testChainID)
	require.NoError(t, err)
	return opts
}
