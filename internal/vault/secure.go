package vault

import (
	"errors"

	"github.com/awnumar/memguard"
)

// errKeyUnavailable is returned when the enclave cannot be opened.
var errKeyUnavailable = errors.New("vault key unavailable")

// SecureKey holds the derived vault key in a memguard enclave: the key
// lives encrypted in locked memory and is only decrypted for the duration
// of a single cryptographic operation. Exactly one Manager owns a
// SecureKey at a time; Destroy scrubs it.
type SecureKey struct {
	enclave *memguard.Enclave
}

// NewSecureKey seals the key into an enclave and wipes the source slice.
func NewSecureKey(key []byte) *SecureKey {
	if len(key) == 0 {
		return nil
	}
	// NewBufferFromBytes takes ownership and zeroes the source.
	buf := memguard.NewBufferFromBytes(key)
	return &SecureKey{enclave: buf.Seal()}
}

// Use opens the enclave, passes the raw key to fn, and scrubs the working
// copy again before returning. The key slice must not escape fn.
func (s *SecureKey) Use(fn func(key []byte) error) error {
	if s == nil || s.enclave == nil {
		return errKeyUnavailable
	}
	buf, err := s.enclave.Open()
	if err != nil {
		return errKeyUnavailable
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}

// Destroy releases the enclave. Safe to call more than once.
func (s *SecureKey) Destroy() {
	if s != nil {
		s.enclave = nil
	}
}
