package protocol

import "errors"

var (
	// ErrPayloadTooLarge means a payload exceeds the 32-bit length field.
	// Local and non-retryable; the caller must shrink the payload.
	ErrPayloadTooLarge = errors.New("protocol: payload too large for frame")

	// ErrBadMagic means the receive buffer does not start with the magic
	// marker. Byte alignment is lost with no resynchronization strategy,
	// so the connection must be torn down.
	ErrBadMagic = errors.New("protocol: bad magic marker")
)
