package config

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	sdkutils "github.com/Layr-Labs/eigensdk-go/utils"

	"github.com/AvaProtocol/safe-userop/core/chainio/aa"
	"github.com/AvaProtocol/safe-userop/core/chainio/signer"
	"github.com/AvaProtocol/safe-userop/pkg/erc4337/preset"
	"github.com/AvaProtocol/safe-userop/pkg/logger"
)

const (
	EnvPrivateKey = "PRIVATE_KEY"
	EnvEthRpcUrl  = "ETH_RPC_URL"

	FeeSourceFixed = "fixed"
	FeeSourceNode  = "node"
)

// Config is the resolved relay configuration. Everything here is parsed and validated;
// nothing has touched the network yet.
type Config struct {
	Logger logger.Logger

	EthRpcUrl            string
	AuthServerUrl        string
	MetricsIpPortAddress string
	EnableMetrics        bool

	PrivateKey *ecdsa.PrivateKey
	Owner      common.Address

	EntryPoint common.Address
	Factory    common.Address
	Safe       common.Address
	Token      common.Address
	Paymaster  common.Address

	Recipient      common.Address
	TokenDecimals  int32
	TransferAmount *big.Int
	MintAmount     *big.Int
	DepositAmount  *big.Int

	FeeSource string
	Gas       preset.GasParams
	// nil when operations are not sponsored
	PaymasterGas *preset.PaymasterParams

	TypedDataChainID *big.Int
}

// These are read from configPath
type ConfigRaw struct {
	Environment          sdklogging.LogLevel `yaml:"environment" validate:"omitempty,oneof=development production"`
	EthRpcUrl            string              `yaml:"eth_rpc_url" validate:"required,url"`
	PrivateKey           string              `yaml:"private_key" validate:"required"`
	AuthServerUrl        string              `yaml:"auth_server_url" validate:"omitempty,url"`
	MetricsIpPortAddress string              `yaml:"metrics_ip_port_address"`
	EnableMetrics        bool                `yaml:"enable_metrics"`

	Contracts ContractsRaw `yaml:"contracts"`
	Transfer  TransferRaw  `yaml:"transfer"`
	Funding   FundingRaw   `yaml:"funding"`
	Gas       GasRaw       `yaml:"gas"`
	TypedData TypedDataRaw `yaml:"typed_data"`
}

type ContractsRaw struct {
	EntryPoint string `yaml:"entrypoint" validate:"omitempty,eth_addr"`
	Factory    string `yaml:"factory" validate:"required,eth_addr"`
	Safe       string `yaml:"safe" validate:"required,eth_addr"`
	Token      string `yaml:"token" validate:"required,eth_addr"`
	Paymaster  string `yaml:"paymaster" validate:"omitempty,eth_addr"`
}

// Amounts are decimal strings in whole units, scaled by TokenDecimals (token) or 18 (ether).
type TransferRaw struct {
	Recipient     string `yaml:"recipient" validate:"required,eth_addr"`
	Amount        string `yaml:"amount"`
	TokenDecimals int32  `yaml:"token_decimals" validate:"gte=0,lte=36"`
}

type FundingRaw struct {
	MintAmount    string `yaml:"mint_amount"`
	DepositAmount string `yaml:"deposit_amount"`
}

type GasRaw struct {
	FeeSource                     string `yaml:"fee_source" validate:"omitempty,oneof=fixed node"`
	VerificationGasLimit          uint64 `yaml:"verification_gas_limit"`
	CallGasLimit                  uint64 `yaml:"call_gas_limit"`
	PreVerificationGas            uint64 `yaml:"pre_verification_gas"`
	MaxFeePerGas                  uint64 `yaml:"max_fee_per_gas"`
	MaxPriorityFeePerGas          uint64 `yaml:"max_priority_fee_per_gas"`
	PaymasterVerificationGasLimit uint64 `yaml:"paymaster_verification_gas_limit"`
	PaymasterPostOpGasLimit       uint64 `yaml:"paymaster_post_op_gas_limit"`
}

type TypedDataRaw struct {
	ChainID uint64 `yaml:"chain_id"`
}

// ReadConfigRaw loads the yaml file at path and applies the environment overrides.
func ReadConfigRaw(path string) (*ConfigRaw, error) {
	var raw ConfigRaw
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if v, ok := os.LookupEnv(EnvPrivateKey); ok && v != "" {
		raw.PrivateKey = v
	}
	if v, ok := os.LookupEnv(EnvEthRpcUrl); ok && v != "" {
		raw.EthRpcUrl = v
	}
	return &raw, nil
}

// NewConfig reads configPath and resolves it into a Config.
func NewConfig(configPath string) (*Config, error) {
	raw, err := ReadConfigRaw(configPath)
	if err != nil {
		return nil, err
	}
	return raw.Resolve()
}

// Resolve validates raw and converts it. Missing gas values fall back to the preset defaults.
func (raw *ConfigRaw) Resolve() (*Config, error) {
	if err := validator.New().Struct(raw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	lgr, err := logger.New(string(raw.Environment))
	if err != nil {
		return nil, err
	}

	key, err := signer.ParsePrivateKey(raw.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("cannot parse private key: %w", err)
	}
	owner, err := sdkutils.EcdsaPrivateKeyToAddress(key)
	if err != nil {
		return nil, fmt.Errorf("cannot derive owner address: %w", err)
	}

	tokenDecimals := raw.Transfer.TokenDecimals
	if tokenDecimals == 0 {
		tokenDecimals = DefaultTokenDecimals
	}
	transferAmount, err := parseUnits(raw.Transfer.Amount, DefaultTransferAmount, tokenDecimals)
	if err != nil {
		return nil, fmt.Errorf("transfer.amount: %w", err)
	}
	mintAmount, err := parseUnits(raw.Funding.MintAmount, DefaultMintAmount, tokenDecimals)
	if err != nil {
		return nil, fmt.Errorf("funding.mint_amount: %w", err)
	}
	depositAmount, err := parseUnits(raw.Funding.DepositAmount, DefaultDepositAmount, etherDecimals)
	if err != nil {
		return nil, fmt.Errorf("funding.deposit_amount: %w", err)
	}

	c := &Config{
		Logger:               lgr,
		EthRpcUrl:            raw.EthRpcUrl,
		AuthServerUrl:        raw.AuthServerUrl,
		MetricsIpPortAddress: raw.MetricsIpPortAddress,
		EnableMetrics:        raw.EnableMetrics,
		PrivateKey:           key,
		Owner:                owner,
		EntryPoint:           aa.DefaultEntrypointAddress,
		Factory:              common.HexToAddress(raw.Contracts.Factory),
		Safe:                 common.HexToAddress(raw.Contracts.Safe),
		Token:                common.HexToAddress(raw.Contracts.Token),
		Recipient:            common.HexToAddress(raw.Transfer.Recipient),
		TokenDecimals:        tokenDecimals,
		TransferAmount:       transferAmount,
		MintAmount:           mintAmount,
		DepositAmount:        depositAmount,
		FeeSource:            FeeSourceFixed,
		Gas:                  resolveGas(raw.Gas),
		TypedDataChainID:     new(big.Int).Set(DefaultTypedDataChainID),
	}
	if raw.Contracts.EntryPoint != "" {
		c.EntryPoint = common.HexToAddress(raw.Contracts.EntryPoint)
	}
	if raw.Gas.FeeSource != "" {
		c.FeeSource = raw.Gas.FeeSource
	}
	if raw.TypedData.ChainID != 0 {
		c.TypedDataChainID = new(big.Int).SetUint64(raw.TypedData.ChainID)
	}
	if raw.Contracts.Paymaster != "" {
		c.Paymaster = common.HexToAddress(raw.Contracts.Paymaster)
		c.PaymasterGas = &preset.PaymasterParams{
			Address:              c.Paymaster,
			VerificationGasLimit: orDefault(raw.Gas.PaymasterVerificationGasLimit, preset.DEFAULT_PAYMASTER_VERIFICATION_GAS_LIMIT),
			PostOpGasLimit:       orDefault(raw.Gas.PaymasterPostOpGasLimit, preset.DEFAULT_PAYMASTER_POST_OP_GAS_LIMIT),
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.Safe == (common.Address{}) {
		return fmt.Errorf("invalid config: contracts.safe is the zero address")
	}
	if c.Factory == (common.Address{}) {
		return fmt.Errorf("invalid config: contracts.factory is the zero address")
	}
	if c.TransferAmount.Sign() <= 0 {
		return fmt.Errorf("invalid config: transfer.amount must be positive")
	}
	return nil
}

func resolveGas(raw GasRaw) preset.GasParams {
	return preset.GasParams{
		VerificationGasLimit: orDefault(raw.VerificationGasLimit, preset.DEFAULT_VERIFICATION_GAS_LIMIT),
		CallGasLimit:         orDefault(raw.CallGasLimit, preset.DEFAULT_CALL_GAS_LIMIT),
		PreVerificationGas:   orDefault(raw.PreVerificationGas, preset.DEFAULT_PREVERIFICATION_GAS),
		MaxFeePerGas:         orDefault(raw.MaxFeePerGas, preset.DEFAULT_MAX_FEE_PER_GAS),
		MaxPriorityFeePerGas: orDefault(raw.MaxPriorityFeePerGas, preset.DEFAULT_MAX_PRIORITY_FEE_PER_GAS),
	}
}

func orDefault(v uint64, def *big.Int) *big.Int {
	if v == 0 {
		return new(big.Int).Set(def)
	}
	return new(big.Int).SetUint64(v)
}

// parseUnits turns a whole-unit decimal string into base units. Fractions finer than
// the token precision are rejected rather than truncated.
func parseUnits(value, def string, decimals int32) (*big.Int, error) {
	if value == "" {
		value = def
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %s", value)
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimals", value, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatUnits renders base units as a whole-unit decimal string.
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}
