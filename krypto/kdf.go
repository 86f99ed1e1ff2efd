package krypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// SaltLengthBytes is the enforced derivation-salt length in bytes.
	SaltLengthBytes = 32
	// KeyLengthBytes is the length of every derived key in bytes.
	KeyLengthBytes = 32
)

// ErrDerivation indicates the key-derivation parameters were rejected.
// With the fixed per-version constants this signals a build defect, not
// a user mistake, and is never retryable.
var ErrDerivation = errors.New("key derivation failed")

// Argon2Params captures tunable parameters for Argon2id.
type Argon2Params struct {
	MemoryMB    uint32
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

// DefaultArgon2Params returns the fixed parameters for the current vault
// format version. Unlock must use the same parameters as initialization,
// so these only ever change together with the format version.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryMB:    64,
		Time:        3,
		Parallelism: 1,
		KeyLen:      KeyLengthBytes,
	}
}

// DeriveKeyArgon2id derives a key using Argon2id with the provided parameters.
func DeriveKeyArgon2id(password []byte, salt []byte, p Argon2Params) ([]byte, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: password is required", ErrDerivation)
	}
	if len(salt) != SaltLengthBytes {
		return nil, fmt.Errorf("%w: salt must be %d bytes", ErrDerivation, SaltLengthBytes)
	}
	if p.KeyLen == 0 {
		return nil, fmt.Errorf("%w: key length must be positive", ErrDerivation)
	}
	if p.MemoryMB == 0 {
		return nil, fmt.Errorf("%w: memory parameter must be positive", ErrDerivation)
	}
	if p.Time == 0 {
		return nil, fmt.Errorf("%w: time parameter must be positive", ErrDerivation)
	}

	memoryKB := p.MemoryMB * 1024
	key := argon2.IDKey(password, salt, p.Time, memoryKB, p.Parallelism, p.KeyLen)
	if uint32(len(key)) != p.KeyLen {
		return nil, fmt.Errorf("%w: derived key has unexpected length %d", ErrDerivation, len(key))
	}
	return key, nil
}

// NewRandomSalt returns a cryptographically secure random derivation salt.
func NewRandomSalt() ([]byte, error) {
	salt := make([]byte, SaltLengthBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// Zeroize overwrites sensitive byte slices in place to reduce lifetime in memory.
func Zeroize(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
