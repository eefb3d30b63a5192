package preset

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/AvaProtocol/safe-userop/pkg/byte4"
)

// RevertKind classifies a decoded revert payload.
type RevertKind int

const (
	RevertUnknown RevertKind = iota
	RevertFailedOp
	RevertFailedOpWithRevert
	RevertSignatureValidationFailed
	RevertPostOp
	RevertErrorString
	RevertCustom
)

func (k RevertKind) String() string {
	switch k {
	case RevertFailedOp:
		return "FailedOp"
	case RevertFailedOpWithRevert:
		return "FailedOpWithRevert"
	case RevertSignatureValidationFailed:
		return "SignatureValidationFailed"
	case RevertPostOp:
		return "PostOpReverted"
	case RevertErrorString:
		return "Error"
	case RevertCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// RevertReason is the decoded form of a revert payload. Unknown payloads keep Raw only.
type RevertReason struct {
	Kind    RevertKind
	Name    string
	OpIndex *big.Int
	Reason  string
	Inner   []byte
	Args    []interface{}
	Raw     []byte
}

// signatureFailureCodes are the entry point validation codes for a bad account or paymaster signature.
var signatureFailureCodes = []string{"AA24", "AA34"}

// IsSignatureFailure reports whether the entry point rejected the operation signature.
func (r RevertReason) IsSignatureFailure() bool {
	switch r.Kind {
	case RevertSignatureValidationFailed:
		return true
	case RevertFailedOp, RevertFailedOpWithRevert:
		for _, code := range signatureFailureCodes {
			if strings.HasPrefix(r.Reason, code) {
				return true
			}
		}
	}
	return false
}

func (r RevertReason) String() string {
	switch r.Kind {
	case RevertFailedOp, RevertFailedOpWithRevert:
		return fmt.Sprintf("%s(op %s): %s", r.Name, r.OpIndex, r.Reason)
	case RevertErrorString:
		return r.Reason
	case RevertUnknown:
		return fmt.Sprintf("unknown revert 0x%x", r.Raw)
	default:
		return fmt.Sprintf("%s%v", r.Name, r.Args)
	}
}

// RevertDecoder turns a revert payload into a RevertReason. It never fails: payloads it
// cannot decode come back as RevertUnknown.
type RevertDecoder interface {
	Decode(payload []byte) RevertReason
}

// ABIRevertDecoder decodes custom errors declared in a contract ABI plus Error(string) and Panic(uint256).
type ABIRevertDecoder struct {
	abi abi.ABI
}

func NewRevertDecoder(contractABI abi.ABI) *ABIRevertDecoder {
	return &ABIRevertDecoder{abi: contractABI}
}

func (d *ABIRevertDecoder) Decode(payload []byte) RevertReason {
	reason := RevertReason{Kind: RevertUnknown, Raw: payload}
	if len(payload) < 4 {
		return reason
	}

	if msg, err := abi.UnpackRevert(payload); err == nil {
		reason.Kind = RevertErrorString
		reason.Name = "Error"
		reason.Reason = msg
		return reason
	}

	customErr, err := byte4.GetErrorFromRevert(d.abi, payload)
	if err != nil {
		return reason
	}
	args, err := customErr.Inputs.Unpack(payload[4:])
	if err != nil {
		return reason
	}

	reason.Name = customErr.Name
	reason.Args = args
	switch customErr.Name {
	case "FailedOp":
		reason.Kind = RevertFailedOp
		reason.OpIndex, _ = args[0].(*big.Int)
		reason.Reason, _ = args[1].(string)
	case "FailedOpWithRevert":
		reason.Kind = RevertFailedOpWithRevert
		reason.OpIndex, _ = args[0].(*big.Int)
		reason.Reason, _ = args[1].(string)
		reason.Inner, _ = args[2].([]byte)
	case "SignatureValidationFailed":
		reason.Kind = RevertSignatureValidationFailed
	case "PostOpReverted":
		reason.Kind = RevertPostOp
		reason.Inner, _ = args[0].([]byte)
	default:
		reason.Kind = RevertCustom
	}
	return reason
}
