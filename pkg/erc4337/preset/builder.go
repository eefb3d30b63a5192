package preset

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AvaProtocol/safe-userop/core/chainio/aa"
	"github.com/AvaProtocol/safe-userop/pkg/erc4337/userop"
	"github.com/AvaProtocol/safe-userop/pkg/logger"
)

var (
	// Defaults of the reference deployment. verificationGasLimit is generous because the
	// first operation also pays for the module account deployment.
	DEFAULT_VERIFICATION_GAS_LIMIT           = big.NewInt(10_000_000_000)
	DEFAULT_CALL_GAS_LIMIT                   = big.NewInt(200_000)
	DEFAULT_PREVERIFICATION_GAS              = big.NewInt(100_000)
	DEFAULT_MAX_FEE_PER_GAS                  = big.NewInt(10_000_000_000) // 10 gwei
	DEFAULT_MAX_PRIORITY_FEE_PER_GAS         = big.NewInt(5_000_000_000)  // 5 gwei
	DEFAULT_PAYMASTER_VERIFICATION_GAS_LIMIT = big.NewInt(300_000)
	DEFAULT_PAYMASTER_POST_OP_GAS_LIMIT      = big.NewInt(0)
)

// CodeReader reports deployed bytecode. ethclient.Client satisfies it.
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// EntryPointReader is the read-only entry point surface the builder and the signing
// engine rely on. *aa.EntryPoint satisfies it.
type EntryPointReader interface {
	GetNonce(ctx context.Context, sender common.Address, key *big.Int) (*big.Int, error)
	GetSenderAddress(ctx context.Context, initCode []byte) (common.Address, error)
	GetUserOpHash(ctx context.Context, op *userop.PackedUserOperation) (common.Hash, error)
}

// AccountIdentity binds the Safe that owns the module account to the account's
// counterfactual address. Deployment status is not part of it: it is read on every build.
type AccountIdentity struct {
	Safe     common.Address
	Factory  common.Address
	InitCode []byte
	Sender   common.Address
}

// Action is the inner call the account performs.
type Action struct {
	Target   common.Address
	Calldata []byte
}

type GasParams struct {
	VerificationGasLimit *big.Int
	CallGasLimit         *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// DefaultGasParams returns fresh copies of the package defaults.
func DefaultGasParams() GasParams {
	return GasParams{
		VerificationGasLimit: new(big.Int).Set(DEFAULT_VERIFICATION_GAS_LIMIT),
		CallGasLimit:         new(big.Int).Set(DEFAULT_CALL_GAS_LIMIT),
		PreVerificationGas:   new(big.Int).Set(DEFAULT_PREVERIFICATION_GAS),
		MaxFeePerGas:         new(big.Int).Set(DEFAULT_MAX_FEE_PER_GAS),
		MaxPriorityFeePerGas: new(big.Int).Set(DEFAULT_MAX_PRIORITY_FEE_PER_GAS),
	}
}

// PaymasterParams sponsors an operation. Data is appended verbatim after the gas limits.
type PaymasterParams struct {
	Address              common.Address
	VerificationGasLimit *big.Int
	PostOpGasLimit       *big.Int
	Data                 []byte
}

// ResolveIdentity computes the init code for the module account bound to safe and asks
// the entry point for the resulting counterfactual address.
func ResolveIdentity(ctx context.Context, entrypoint EntryPointReader, factory, safe common.Address) (*AccountIdentity, error) {
	initCode, err := aa.GetInitCode(factory, safe)
	if err != nil {
		return nil, stageError(StageIdentity, fmt.Errorf("pack init code: %w", err))
	}

	sender, err := entrypoint.GetSenderAddress(ctx, initCode)
	if err != nil {
		return nil, stageError(StageIdentity, err)
	}

	return &AccountIdentity{
		Safe:     safe,
		Factory:  factory,
		InitCode: initCode,
		Sender:   sender,
	}, nil
}

// ModuleChecker reports whether an address is an enabled module of a Safe. *aa.Safe satisfies it.
type ModuleChecker interface {
	IsModuleEnabled(ctx context.Context, module common.Address) (bool, error)
}

// RequireModule fails with ErrModuleNotEnabled unless the module account of identity is
// enabled on its Safe. Enabling it is left to the Safe owners.
func RequireModule(ctx context.Context, safe ModuleChecker, identity *AccountIdentity) error {
	enabled, err := safe.IsModuleEnabled(ctx, identity.Sender)
	if err != nil {
		return stageError(StageIdentity, err)
	}
	if !enabled {
		return stageError(StageIdentity, fmt.Errorf("%w: %s on %s", ErrModuleNotEnabled, identity.Sender.Hex(), identity.Safe.Hex()))
	}
	return nil
}

// Builder assembles unsigned operations.
type Builder struct {
	code       CodeReader
	entrypoint EntryPointReader
	nonceKey   *big.Int
	logger     logger.Logger
}

type BuilderOption func(*Builder)

func WithBuilderLogger(l logger.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger.EnsureLogger(l)
	}
}

// WithNonceKey selects a non-default nonce lane.
func WithNonceKey(key *big.Int) BuilderOption {
	return func(b *Builder) {
		b.nonceKey = new(big.Int).Set(key)
	}
}

func NewBuilder(code CodeReader, entrypoint EntryPointReader, opts ...BuilderOption) *Builder {
	b := &Builder{
		code:       code,
		entrypoint: entrypoint,
		nonceKey:   aa.DefaultNonceKey,
		logger:     logger.EnsureLogger(nil),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assembles the unsigned operation for identity performing action. Nothing is cached:
// deployment status and nonce are read from the chain on every call. Any collaborator
// failure aborts the build.
func (b *Builder) Build(ctx context.Context, identity *AccountIdentity, action Action, gas GasParams, paymaster *PaymasterParams) (*userop.PackedUserOperation, error) {
	if identity == nil {
		return nil, stageError(StageBuild, fmt.Errorf("account identity is required"))
	}

	callData, err := aa.PackExecute(action.Target, action.Calldata)
	if err != nil {
		return nil, stageError(StageBuild, fmt.Errorf("pack execute: %w", err))
	}

	accountGasLimits, err := userop.PackAccountGasLimits(gas.VerificationGasLimit, gas.CallGasLimit)
	if err != nil {
		return nil, stageError(StageBuild, fmt.Errorf("accountGasLimits: %w", err))
	}
	gasFees, err := userop.PackGasFees(gas.MaxPriorityFeePerGas, gas.MaxFeePerGas)
	if err != nil {
		return nil, stageError(StageBuild, fmt.Errorf("gasFees: %w", err))
	}
	if gas.PreVerificationGas == nil || gas.PreVerificationGas.Sign() < 0 {
		return nil, stageError(StageBuild, fmt.Errorf("preVerificationGas: %w", userop.ErrEncodingOverflow))
	}

	var paymasterAndData []byte
	if paymaster != nil {
		paymasterAndData, err = userop.PackPaymasterData(paymaster.Address, paymaster.VerificationGasLimit, paymaster.PostOpGasLimit, paymaster.Data)
		if err != nil {
			return nil, stageError(StageBuild, fmt.Errorf("paymasterAndData: %w", err))
		}
	}

	code, err := b.code.CodeAt(ctx, identity.Sender, nil)
	if err != nil {
		return nil, stageError(StageBuild, fmt.Errorf("%w: code at %s: %w", userop.ErrCollaboratorUnavailable, identity.Sender.Hex(), err))
	}
	var initCode []byte
	if len(code) == 0 {
		initCode = common.CopyBytes(identity.InitCode)
	}

	nonce, err := b.entrypoint.GetNonce(ctx, identity.Sender, b.nonceKey)
	if err != nil {
		return nil, stageError(StageBuild, err)
	}

	b.logger.Debug("built user operation",
		"sender", identity.Sender.Hex(),
		"nonce", nonce.String(),
		"deployed", len(code) > 0,
		"sponsored", paymaster != nil,
	)

	return &userop.PackedUserOperation{
		Sender:             identity.Sender,
		Nonce:              nonce,
		InitCode:           initCode,
		CallData:           callData,
		AccountGasLimits:   accountGasLimits,
		PreVerificationGas: new(big.Int).Set(gas.PreVerificationGas),
		GasFees:            gasFees,
		PaymasterAndData:   paymasterAndData,
		Signature:          []byte{},
	}, nil
}
