package protocol

import "errors"

var (
	ErrUnsupportedWidth  = errors.New("protocol: unsupported word width")
	ErrBurstNotSupported = errors.New("protocol: burst not supported by mode")
	ErrMissingBurstFlag  = errors.New("protocol: multi-word frame without burst flag")
	ErrAddressOutOfRange = errors.New("protocol: address out of range")
	ErrValueOutOfRange   = errors.New("protocol: value exceeds word width")
	ErrEmptyFrame        = errors.New("protocol: frame carries no values")
	ErrMalformedResponse = errors.New("protocol: malformed response")
)
