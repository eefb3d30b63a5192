package relay

import (
	"context"
	"fmt"
	"math/big"

	sdkmetrics "github.com/Layr-Labs/eigensdk-go/metrics"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AvaProtocol/safe-userop/core/chainio/aa"
	"github.com/AvaProtocol/safe-userop/core/chainio/signer"
	"github.com/AvaProtocol/safe-userop/core/config"
	"github.com/AvaProtocol/safe-userop/metrics"
	"github.com/AvaProtocol/safe-userop/pkg/eip1559"
	"github.com/AvaProtocol/safe-userop/pkg/erc4337/preset"
	"github.com/AvaProtocol/safe-userop/pkg/logger"
)

// Backend is the node surface the relay needs. The eigen sdk eth.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	eip1559.FeeSource
	ChainID(ctx context.Context) (*big.Int, error)
}

// Relay wires the configured contracts, the node connection and the owner key together.
type Relay struct {
	config     *config.Config
	logger     logger.Logger
	backend    Backend
	chainID    *big.Int
	env        config.ChainEnv
	auth       *bind.TransactOpts
	entrypoint *aa.EntryPoint
	waiter     preset.MinedWaiter

	metrics    *metrics.RelayMetrics
	metricsReg *prometheus.Registry
}

// New dials the configured node.
func New(ctx context.Context, c *config.Config) (*Relay, error) {
	reg := prometheus.NewRegistry()
	client, err := c.NewEthClient(reg)
	if err != nil {
		logger.EnsureLogger(c.Logger).Error("Cannot create http ethclient", "err", err)
		return nil, err
	}
	return NewWithBackend(ctx, c, client, reg)
}

func NewWithBackend(ctx context.Context, c *config.Config, backend Backend, reg *prometheus.Registry) (*Relay, error) {
	lgr := logger.EnsureLogger(c.Logger)

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		lgr.Error("Cannot get chainId", "err", err)
		return nil, err
	}

	auth, err := signer.NewTransactor(c.PrivateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("cannot create transactor: %w", err)
	}

	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	var eigenMetrics sdkmetrics.Metrics
	if c.EnableMetrics {
		eigenMetrics = sdkmetrics.NewEigenMetrics(config.AppName, c.MetricsIpPortAddress, reg, lgr)
	}

	r := &Relay{
		config:     c,
		logger:     lgr,
		backend:    backend,
		chainID:    chainID,
		env:        config.ChainEnvFromID(chainID),
		auth:       auth,
		entrypoint: aa.NewEntryPoint(c.EntryPoint, backend),
		waiter:     preset.MinedWaiter{Backend: backend},
		metrics:    metrics.NewRelayMetrics(eigenMetrics, reg),
		metricsReg: reg,
	}
	lgr.Info("relay ready",
		"chain_id", chainID.String(),
		"chain", string(r.env),
		"owner", c.Owner.Hex(),
		"entrypoint", c.EntryPoint.Hex(),
	)
	return r, nil
}

// StartMetrics serves /metrics when enabled. The returned channel is nil otherwise.
func (r *Relay) StartMetrics(ctx context.Context) <-chan error {
	if r.metrics.Metrics == nil {
		return nil
	}
	r.logger.Info("serving metrics", "address", r.config.MetricsIpPortAddress)
	return r.metrics.Start(ctx, r.metricsReg)
}

func (r *Relay) ChainID() *big.Int {
	return new(big.Int).Set(r.chainID)
}

func (r *Relay) identity(ctx context.Context) (*preset.AccountIdentity, error) {
	return preset.ResolveIdentity(ctx, r.entrypoint, r.config.Factory, r.config.Safe)
}

func (r *Relay) safe() *aa.Safe {
	return aa.NewSafe(r.config.Safe, r.backend)
}

func (r *Relay) builder() *preset.Builder {
	return preset.NewBuilder(r.backend, r.entrypoint, preset.WithBuilderLogger(r.logger))
}

// gasParams returns the configured gas values, with fees from the node when the fee
// source says so.
func (r *Relay) gasParams(ctx context.Context) (preset.GasParams, error) {
	g := r.config.Gas
	gas := preset.GasParams{
		VerificationGasLimit: new(big.Int).Set(g.VerificationGasLimit),
		CallGasLimit:         new(big.Int).Set(g.CallGasLimit),
		PreVerificationGas:   new(big.Int).Set(g.PreVerificationGas),
		MaxFeePerGas:         new(big.Int).Set(g.MaxFeePerGas),
		MaxPriorityFeePerGas: new(big.Int).Set(g.MaxPriorityFeePerGas),
	}
	if r.config.FeeSource != config.FeeSourceNode {
		return gas, nil
	}

	maxFee, tip, err := eip1559.SuggestFee(ctx, r.backend)
	if err != nil {
		return gas, fmt.Errorf("suggest fees: %w", err)
	}
	r.logger.Debug("using node fee suggestion", "max_fee", maxFee.String(), "max_priority_fee", tip.String())
	gas.MaxFeePerGas = maxFee
	gas.MaxPriorityFeePerGas = tip
	return gas, nil
}
