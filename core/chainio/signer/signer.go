package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	eip191Prefix = "\x19Ethereum Signed Message:\n"
)

var ErrInvalidSignature = errors.New("signer: invalid signature")

func FromPrivateKeyHex(privateKeyHex string, chainID *big.Int) (*bind.TransactOpts, error) {
	privateKey, err := ParsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}

	return NewTransactor(privateKey, chainID)
}

// NewTransactor returns transact options signing for key on chainID.
func NewTransactor(key *ecdsa.PrivateKey, chainID *big.Int) (*bind.TransactOpts, error) {
	if key == nil {
		return nil, fmt.Errorf("signer: no private key")
	}
	if chainID == nil {
		return nil, fmt.Errorf("signer: no chain id")
	}
	return bind.NewKeyedTransactorWithChainID(key, chainID)
}

// ParsePrivateKey accepts a hex key with or without the 0x prefix.
func ParsePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
}

// EIP191Hash is keccak256("\x19Ethereum Signed Message:\n" + len(data) + data).
func EIP191Hash(data []byte) common.Hash {
	prefix := []byte(eip191Prefix + fmt.Sprint(len(data)))
	return crypto.Keccak256Hash(prefix, data)
}

// Generate EIP191 signature
func SignMessage(key *ecdsa.PrivateKey, data []byte) ([]byte, error) {
	sig, e := crypto.Sign(EIP191Hash(data).Bytes(), key)
	if e != nil {
		return nil, e
	}
	// https://stackoverflow.com/questions/69762108/implementing-ethereum-personal-sign-eip-191-from-go-ethereum-gives-different-s
	sig[64] += 27

	return sig, nil
}

// SignMessageAsHex returns the 0x prefixed signature, the form wallets hand out.
func SignMessageAsHex(key *ecdsa.PrivateKey, data []byte) (string, error) {
	signature, e := SignMessage(key, data)
	if e == nil {
		return hexutil.Encode(signature), nil
	}

	return "", e
}

// SignTypedData signs the EIP-712 digest of typedData. v is 27 or 28 as wallets produce.
func SignTypedData(key *ecdsa.PrivateKey, typedData apitypes.TypedData) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("typed data hash: %w", err)
	}

	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27

	return sig, nil
}

// RecoverDigestSigner returns the address that produced sig over digest. Both the 0/1 and
// 27/28 recovery id conventions are accepted.
func RecoverDigestSigner(digest []byte, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}

	normalized := common.CopyBytes(sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	if normalized[64] > 1 {
		return common.Address{}, fmt.Errorf("%w: recovery id %d", ErrInvalidSignature, sig[64])
	}

	pub, err := crypto.SigToPub(digest, normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// RecoverMessageSigner returns the signer of an EIP191 signature over data.
func RecoverMessageSigner(data []byte, sig []byte) (common.Address, error) {
	return RecoverDigestSigner(EIP191Hash(data).Bytes(), sig)
}

// Verify reports whether sig is an EIP191 signature over data by expected.
func Verify(data []byte, sig []byte, expected common.Address) bool {
	addr, err := RecoverMessageSigner(data, sig)
	return err == nil && addr == expected
}
