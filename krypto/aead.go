package krypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// NonceSize is the AES-GCM nonce length embedded at the front of every blob.
const NonceSize = 12

var (
	// ErrBlobTooShort indicates the ciphertext blob cannot even contain a nonce.
	ErrBlobTooShort = errors.New("encrypted blob too short")
	// ErrIntegrity indicates AEAD authentication failed: wrong key, corrupted
	// bytes, or a truncated tag. No plaintext is ever released alongside it.
	ErrIntegrity = errors.New("authentication failed")
)

// SealAESGCM encrypts plaintext using AES-256-GCM and returns a single
// self-contained blob: nonce(12) followed by ciphertext and tag(16).
// The nonce is freshly random per call; nonce reuse under the same key
// breaks this cipher, so the nonce never comes from anywhere but the CSPRNG.
func SealAESGCM(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// OpenAESGCM authenticates and decrypts a blob produced by SealAESGCM.
func OpenAESGCM(key, blob []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(blob) < NonceSize {
		return nil, ErrBlobTooShort
	}

	nonce := blob[:NonceSize]
	ciphertext := blob[NonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLengthBytes {
		return nil, errors.New("aes-gcm requires a 32-byte key")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
