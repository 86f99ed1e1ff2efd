package vault

import (
	"errors"

	"github.com/Hussein-Mazeh/aliaser/internal/store"
	"github.com/Hussein-Mazeh/aliaser/krypto"
)

var (
	// ErrInvalidState indicates an operation was attempted in the wrong
	// lifecycle state. A usage error, never retried.
	ErrInvalidState = errors.New("operation not valid in current vault state")

	// ErrAuthentication indicates the master password is wrong. The user
	// may retry with a different password.
	ErrAuthentication = errors.New("invalid master password")

	// ErrHardwareUnavailable indicates the hardware token is required but
	// absent. Retryable after the user reinserts the token.
	ErrHardwareUnavailable = krypto.ErrHardwareUnavailable

	// ErrDerivation indicates an internal key-derivation failure; fatal.
	ErrDerivation = krypto.ErrDerivation

	// ErrIntegrity indicates the encrypted store failed AEAD authentication:
	// corruption, tampering, or a foreign key. Never retried automatically.
	ErrIntegrity = krypto.ErrIntegrity

	// ErrFormat indicates a malformed on-disk structure.
	ErrFormat = store.ErrFormat
)
