package auth

import "errors"

var (
	ErrAuthServer       = errors.New("auth: server request failed")
	ErrMalformedMessage = errors.New("auth: malformed sign-in message response")
	ErrInvalidSignature = errors.New("auth: signature does not match address")
)
