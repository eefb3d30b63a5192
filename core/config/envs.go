package config

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type ChainEnv string

const (
	AnvilEnv    = ChainEnv("anvil")
	SepoliaEnv  = ChainEnv("sepolia")
	EthereumEnv = ChainEnv("ethereum")
	UnknownEnv  = ChainEnv("unknown")
)

const (
	etherDecimals = int32(18)

	DefaultTokenDecimals  = etherDecimals
	DefaultTransferAmount = "1"
	DefaultMintAmount     = "100"
	DefaultDepositAmount  = "100"
)

var (
	MainnetChainID = big.NewInt(1)
	// The SafeOp envelope is produced for mainnet unless typed_data.chain_id says otherwise.
	DefaultTypedDataChainID = MainnetChainID
)

var chainEnvs = map[uint64]ChainEnv{
	1:        EthereumEnv,
	11155111: SepoliaEnv,
	31337:    AnvilEnv,
}

func ChainEnvFromID(chainID *big.Int) ChainEnv {
	if chainID == nil || !chainID.IsUint64() {
		return UnknownEnv
	}
	if env, ok := chainEnvs[chainID.Uint64()]; ok {
		return env
	}
	return UnknownEnv
}

// EtherscanURL is the explorer base for env. Local and unknown chains have none.
func (env ChainEnv) EtherscanURL() string {
	switch env {
	case EthereumEnv:
		return "https://etherscan.io"
	case SepoliaEnv:
		return "https://sepolia.etherscan.io"
	}
	return ""
}

func (env ChainEnv) TxURL(tx common.Hash) string {
	base := env.EtherscanURL()
	if base == "" {
		return ""
	}
	return base + "/tx/" + tx.Hex()
}
