package krypto

import (
	"errors"
	"fmt"
)

// ChallengeSize is the fixed challenge length for hardware challenge-response.
// HMAC-SHA1 tokens expect exactly 64 bytes.
const ChallengeSize = 64

// Info strings binding each HKDF expansion to its purpose. Changing either
// one changes every derived key, so they are part of the vault format.
var (
	hardwareFactorInfo = []byte("aliaser-yubikey-v1")
	combinedKeyInfo    = []byte("aliaser-combined-key-v1")
)

// ErrHardwareUnavailable indicates the token is absent, was removed
// mid-operation, or returned unusable data. The user may reinsert the
// token and retry the whole operation.
var ErrHardwareUnavailable = errors.New("hardware token unavailable")

// TokenProvider is the capability needed from a hardware token: a
// non-blocking presence probe and a deterministic challenge-response
// exchange. The same challenge must always yield the same response.
type TokenProvider interface {
	Present() bool
	ChallengeResponse(challenge []byte) ([]byte, error)
}

// DerivePasswordFactor derives the 32-byte password factor with Argon2id
// using the vault's fixed parameters.
func DerivePasswordFactor(password, salt []byte) ([]byte, error) {
	return DeriveKeyArgon2id(password, salt, DefaultArgon2Params())
}

// DeriveHardwareFactor obtains the token's response to a challenge built
// from the salt and expands it into a 32-byte factor.
func DeriveHardwareFactor(tp TokenProvider, salt []byte) ([]byte, error) {
	if tp == nil || !tp.Present() {
		return nil, ErrHardwareUnavailable
	}

	// Left-place the salt into the fixed-width challenge, zero-padded.
	challenge := make([]byte, ChallengeSize)
	copy(challenge, salt)

	response, err := tp.ChallengeResponse(challenge)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
	}
	if len(response) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrHardwareUnavailable)
	}
	defer Zeroize(response)

	key, err := HKDFSHA256(response, salt, hardwareFactorInfo, KeyLengthBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivation, err)
	}
	return key, nil
}

// CombineKeys binds the password factor and the hardware factor into the
// final 32-byte vault key. Combining through an HKDF extraction rather
// than XOR keeps the result one-way in both inputs; the intermediate
// concatenation buffer is wiped before returning.
func CombineKeys(passwordKey, hardwareKey []byte) ([]byte, error) {
	if len(passwordKey) != KeyLengthBytes || len(hardwareKey) != KeyLengthBytes {
		return nil, fmt.Errorf("%w: factors must be %d bytes", ErrDerivation, KeyLengthBytes)
	}

	combined := make([]byte, 0, 2*KeyLengthBytes)
	combined = append(combined, passwordKey...)
	combined = append(combined, hardwareKey...)
	defer Zeroize(combined)

	key, err := HKDFSHA256(combined, nil, combinedKeyInfo, KeyLengthBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivation, err)
	}
	return key, nil
}

// DeriveVaultKey is the single derivation entry point used by both
// initialization and unlock: the password factor is always computed, and
// when hardwareEnabled the token factor is folded in. Determinism here is
// load-bearing; it is how unlock reproduces the key without storing it.
func DeriveVaultKey(password, salt []byte, tp TokenProvider, hardwareEnabled bool) ([]byte, error) {
	passwordKey, err := DerivePasswordFactor(password, salt)
	if err != nil {
		return nil, err
	}

	if !hardwareEnabled {
		return passwordKey, nil
	}
	defer Zeroize(passwordKey)

	hardwareKey, err := DeriveHardwareFactor(tp, salt)
	if err != nil {
		return nil, err
	}
	defer Zeroize(hardwareKey)

	return CombineKeys(passwordKey, hardwareKey)
}
