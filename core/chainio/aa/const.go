package aa

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// DefaultEntrypointAddress is the canonical EntryPoint v0.7 deployment.
	DefaultEntrypointAddress = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")

	// DefaultNonceKey selects the sequential nonce lane.
	DefaultNonceKey = big.NewInt(0)

	// topic of UserOperationEvent(bytes32,address,address,uint256,bool,uint256,uint256)
	userOpEventTopic0 = common.HexToHash("0x49628fd1471006c1482da88028e9ce4dbb080b815c9b0344d39e5a8e6ec1419f")
)
