package transport

import "errors"

var (
	errFrameTooLarge = errors.New("transport: frame exceeds maximum length")
	errTLSMismatch   = errors.New("transport: peer TLS setting does not match local configuration")
)
