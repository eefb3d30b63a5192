package auth

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-resty/resty/v2"

	"github.com/AvaProtocol/safe-userop/core/chainio/signer"
	"github.com/AvaProtocol/safe-userop/pkg/logger"
)

const DefaultTimeout = 10 * time.Second

// MessageResponse is the body of GET /auth/message/{address}.
type MessageResponse struct {
	Payload struct {
		Message string `json:"Message"`
	} `json:"payload"`
}

// Credential is a signed sign-in message.
type Credential struct {
	Address   common.Address
	Message   string
	Signature string
}

// Verify checks that the signature recovers to Address.
func (c Credential) Verify() error {
	sig, err := hexutil.Decode(c.Signature)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if !signer.Verify([]byte(c.Message), sig, c.Address) {
		return ErrInvalidSignature
	}
	return nil
}

// AuthorizationHeader is the bearer value the service expects on later requests.
func (c Credential) AuthorizationHeader() string {
	return fmt.Sprintf("Bearer %s.%s", c.Address.Hex(), c.Signature)
}

// Client talks to the auth service.
type Client struct {
	baseURL    string
	httpClient *resty.Client
	logger     logger.Logger
}

func NewClient(serverURL string, lgr logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(serverURL, "/"),
		httpClient: resty.New().SetTimeout(DefaultTimeout),
		logger:     logger.EnsureLogger(lgr),
	}
}

// SigninMessage fetches the message address has to sign.
func (c *Client) SigninMessage(ctx context.Context, address common.Address) (string, error) {
	url := fmt.Sprintf("%s/auth/message/%s", c.baseURL, address.Hex())

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&MessageResponse{}).
		Get(url)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthServer, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrAuthServer, resp.StatusCode(), resp.String())
	}

	result := resp.Result().(*MessageResponse)
	if result.Payload.Message == "" {
		return "", ErrMalformedMessage
	}
	return result.Payload.Message, nil
}

// Login fetches the sign-in message for the key's address and signs it with an EIP-191
// personal signature.
func (c *Client) Login(ctx context.Context, key *ecdsa.PrivateKey) (*Credential, error) {
	address, err := addressOf(key)
	if err != nil {
		return nil, err
	}

	msg, err := c.SigninMessage(ctx, address)
	if err != nil {
		return nil, err
	}

	sig, err := signer.SignMessageAsHex(key, []byte(msg))
	if err != nil {
		return nil, err
	}

	c.logger.Info("signed auth message", "address", address.Hex())
	return &Credential{Address: address, Message: msg, Signature: sig}, nil
}

func addressOf(key *ecdsa.PrivateKey) (common.Address, error) {
	if key == nil {
		return common.Address{}, fmt.Errorf("auth: no signing key")
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}
