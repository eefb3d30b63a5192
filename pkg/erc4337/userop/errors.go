package userop

import "errors"

var (
	// ErrEncodingOverflow is returned when an integer does not fit its 16 byte slot.
	ErrEncodingOverflow = errors.New("userop: value does not fit in 128 bits")

	// ErrMalformedOperation is returned for operations whose packed fields have the wrong size.
	ErrMalformedOperation = errors.New("userop: malformed operation")

	// ErrMalformedPaymasterData is returned when paymasterAndData is shorter than its fixed prefix.
	ErrMalformedPaymasterData = errors.New("userop: paymasterAndData shorter than 52 bytes")

	// ErrCollaboratorUnavailable wraps transport failures talking to the node or a contract.
	ErrCollaboratorUnavailable = errors.New("userop: collaborator unavailable")

	// ErrUnexpectedRevertShape is returned when a call that must revert with an
	// address payload either succeeds or reverts with something shorter.
	ErrUnexpectedRevertShape = errors.New("userop: unexpected revert shape")

	// ErrSignatureRejected is returned when the entry point refuses the operation signature.
	ErrSignatureRejected = errors.New("userop: signature rejected")

	// ErrOperationReverted is returned for every other on-chain rejection of handleOps.
	ErrOperationReverted = errors.New("userop: operation reverted")
)
