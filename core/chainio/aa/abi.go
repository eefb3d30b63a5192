package aa

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// EntryPointABIJSON is the subset of the EntryPoint v0.7 interface the relay talks to.
const EntryPointABIJSON = `[
	{"type":"function","name":"getNonce","stateMutability":"view",
	 "inputs":[{"name":"sender","type":"address"},{"name":"key","type":"uint192"}],
	 "outputs":[{"name":"nonce","type":"uint256"}]},
	{"type":"function","name":"getSenderAddress","stateMutability":"nonpayable",
	 "inputs":[{"name":"initCode","type":"bytes"}],
	 "outputs":[]},
	{"type":"function","name":"getUserOpHash","stateMutability":"view",
	 "inputs":[{"name":"userOp","type":"tuple","components":[
		{"name":"sender","type":"address"},
		{"name":"nonce","type":"uint256"},
		{"name":"initCode","type":"bytes"},
		{"name":"callData","type":"bytes"},
		{"name":"accountGasLimits","type":"bytes32"},
		{"name":"preVerificationGas","type":"uint256"},
		{"name":"gasFees","type":"bytes32"},
		{"name":"paymasterAndData","type":"bytes"},
		{"name":"signature","type":"bytes"}]}],
	 "outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"handleOps","stateMutability":"nonpayable",
	 "inputs":[{"name":"ops","type":"tuple[]","components":[
		{"name":"sender","type":"address"},
		{"name":"nonce","type":"uint256"},
		{"name":"initCode","type":"bytes"},
		{"name":"callData","type":"bytes"},
		{"name":"accountGasLimits","type":"bytes32"},
		{"name":"preVerificationGas","type":"uint256"},
		{"name":"gasFees","type":"bytes32"},
		{"name":"paymasterAndData","type":"bytes"},
		{"name":"signature","type":"bytes"}]},
	  {"name":"beneficiary","type":"address"}],
	 "outputs":[]},
	{"type":"function","name":"depositTo","stateMutability":"payable",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"error","name":"FailedOp",
	 "inputs":[{"name":"opIndex","type":"uint256"},{"name":"reason","type":"string"}]},
	{"type":"error","name":"FailedOpWithRevert",
	 "inputs":[{"name":"opIndex","type":"uint256"},{"name":"reason","type":"string"},{"name":"inner","type":"bytes"}]},
	{"type":"error","name":"PostOpReverted",
	 "inputs":[{"name":"returnData","type":"bytes"}]},
	{"type":"error","name":"SenderAddressResult",
	 "inputs":[{"name":"sender","type":"address"}]},
	{"type":"error","name":"SignatureValidationFailed",
	 "inputs":[{"name":"aggregator","type":"address"}]},
	{"type":"event","name":"UserOperationEvent","anonymous":false,
	 "inputs":[
		{"name":"userOpHash","type":"bytes32","indexed":true},
		{"name":"sender","type":"address","indexed":true},
		{"name":"paymaster","type":"address","indexed":true},
		{"name":"nonce","type":"uint256","indexed":false},
		{"name":"success","type":"bool","indexed":false},
		{"name":"actualGasCost","type":"uint256","indexed":false},
		{"name":"actualGasUsed","type":"uint256","indexed":false}]},
	{"type":"event","name":"UserOperationRevertReason","anonymous":false,
	 "inputs":[
		{"name":"userOpHash","type":"bytes32","indexed":true},
		{"name":"sender","type":"address","indexed":true},
		{"name":"nonce","type":"uint256","indexed":false},
		{"name":"revertReason","type":"bytes","indexed":false}]}
]`

// AccountFactoryABIJSON deploys a module account bound to a Safe.
const AccountFactoryABIJSON = `[
	{"type":"function","name":"createAccount","stateMutability":"nonpayable",
	 "inputs":[{"name":"safe","type":"address"}],
	 "outputs":[{"name":"account","type":"address"}]}
]`

// ModuleAccountABIJSON is the smart account that executes calls through its Safe.
const ModuleAccountABIJSON = `[
	{"type":"function","name":"execute","stateMutability":"nonpayable",
	 "inputs":[{"name":"dest","type":"address"},{"name":"func","type":"bytes"}],
	 "outputs":[]}
]`

const SafeABIJSON = `[
	{"type":"function","name":"isModuleEnabled","stateMutability":"view",
	 "inputs":[{"name":"module","type":"address"}],
	 "outputs":[{"name":"","type":"bool"}]}
]`

// TokenABIJSON is a mintable ERC-20.
const TokenABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],
	 "outputs":[]}
]`

var (
	EntryPointABI    = mustParseABI("entrypoint", EntryPointABIJSON)
	factoryABI       = mustParseABI("account factory", AccountFactoryABIJSON)
	moduleAccountABI = mustParseABI("module account", ModuleAccountABIJSON)
	safeABI          = mustParseABI("safe", SafeABIJSON)
	TokenABI         = mustParseABI("token", TokenABIJSON)
)

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Errorf("invalid %s ABI: %w", name, err))
	}
	return parsed
}
