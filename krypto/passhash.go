package krypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Password verification uses its own Argon2id computation with an
// independent random salt, kept deliberately separate from the
// encryption-key derivation: verifying a password must never reveal
// anything usable to brute-force the vault key offline.

const (
	verifySaltLen = 16
	verifyHashLen = 32
)

var (
	// ErrPasswordMismatch indicates the password does not match the stored hash.
	ErrPasswordMismatch = errors.New("password does not match")
	// ErrHashFormat indicates the stored verification hash is malformed.
	ErrHashFormat = errors.New("malformed password hash")
)

// HashPassword produces a self-describing PHC-encoded Argon2id hash of the
// password, carrying its own salt and parameters:
//
//	$argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
func HashPassword(password []byte) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is required")
	}

	salt := make([]byte, verifySaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate verification salt: %w", err)
	}

	p := DefaultArgon2Params()
	memoryKB := p.MemoryMB * 1024
	sum := argon2.IDKey(password, salt, p.Time, memoryKB, p.Parallelism, verifyHashLen)

	b64 := base64.RawStdEncoding
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memoryKB, p.Time, p.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(sum))
	return encoded, nil
}

// VerifyPassword recomputes the hash using the parameters embedded in the
// encoded string and compares in constant time. Returns ErrPasswordMismatch
// on a wrong password and ErrHashFormat when the stored string is unusable.
func VerifyPassword(password []byte, encoded string) error {
	salt, want, params, err := parsePHC(encoded)
	if err != nil {
		return err
	}

	got := argon2.IDKey(password, salt, params.time, params.memoryKB, params.parallelism, uint32(len(want)))
	defer Zeroize(got)

	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

type phcParams struct {
	memoryKB    uint32
	time        uint32
	parallelism uint8
}

func parsePHC(encoded string) (salt, hash []byte, params phcParams, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, nil, params, ErrHashFormat
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, params, ErrHashFormat
	}
	if version != argon2.Version {
		return nil, nil, params, fmt.Errorf("%w: unsupported argon2 version %d", ErrHashFormat, version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&params.memoryKB, &params.time, &params.parallelism); err != nil {
		return nil, nil, params, ErrHashFormat
	}
	if params.memoryKB == 0 || params.time == 0 || params.parallelism == 0 {
		return nil, nil, params, ErrHashFormat
	}

	b64 := base64.RawStdEncoding
	salt, err = b64.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, ErrHashFormat
	}
	hash, err = b64.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return nil, nil, params, ErrHashFormat
	}
	return salt, hash, params, nil
}
