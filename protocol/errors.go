package protocol

import "errors"

// Errors reported by protocol operations. Callers match them with errors.Is;
// operations wrap them with context using fmt.Errorf and %w.
var (
	// ErrConfig reports an invalid field layout, precision, key or batch id.
	ErrConfig = errors.New("invalid config")

	// ErrInvalidInput reports client data of the wrong length or out of range.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedShare reports a client share that does not match its config.
	ErrMalformedShare = errors.New("malformed share")

	// ErrFormat reports a serialized artifact that fails validation.
	ErrFormat = errors.New("format error")

	// ErrState reports an operation invoked out of sequence.
	ErrState = errors.New("invalid state")

	// ErrConfigMismatch reports a merge or combine across incompatible configs.
	ErrConfigMismatch = errors.New("config mismatch")

	// ErrVerificationRejected reports a share whose validity proof failed.
	ErrVerificationRejected = errors.New("verification rejected")

	// ErrContextClosed reports use of a config after its context was closed.
	ErrContextClosed = errors.New("context closed")

	// ErrInitFailed reports a failed cryptographic backend initialization.
	ErrInitFailed = errors.New("crypto context initialization failed")

	// ErrCapacityExceeded reports an aggregate that does not fit the output width.
	ErrCapacityExceeded = errors.New("aggregate exceeds output capacity")
)
