package krypto_test

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/Hussein-Mazeh/aliaser/krypto"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, krypto.KeyLengthBytes)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func TestSealOpenRoundTrip(t *testing.T) {
	key := testKey(t)
	plaintext := []byte(`{"identities":{"demo":{}}}`)

	blob, err := krypto.SealAESGCM(key, plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	got, err := krypto.OpenAESGCM(key, blob)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
	}
}

func TestSealNonceUniqueness(t *testing.T) {
	key := testKey(t)
	plaintext := []byte("same message every time")

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		blob, err := krypto.SealAESGCM(key, plaintext)
		if err != nil {
			t.Fatalf("seal %d: %v", i, err)
		}
		nonce := string(blob[:krypto.NonceSize])
		if _, dup := seen[nonce]; dup {
			t.Fatalf("nonce repeated after %d seals", i)
		}
		seen[nonce] = struct{}{}
	}
}

func TestOpenRejectsBitFlips(t *testing.T) {
	key := testKey(t)
	plaintext := []byte("integrity matters")

	blob, err := krypto.SealAESGCM(key, plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	// Flip one bit at a time across ciphertext and tag.
	for i := krypto.NonceSize; i < len(blob); i++ {
		corrupted := bytes.Clone(blob)
		corrupted[i] ^= 0x01

		got, err := krypto.OpenAESGCM(key, corrupted)
		if !errors.Is(err, krypto.ErrIntegrity) {
			t.Fatalf("flip at %d: got err %v, want ErrIntegrity", i, err)
		}
		if got != nil {
			t.Fatalf("flip at %d: released plaintext %q", i, got)
		}
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	blob, err := krypto.SealAESGCM(testKey(t), []byte("secret"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := krypto.OpenAESGCM(testKey(t), blob); !errors.Is(err, krypto.ErrIntegrity) {
		t.Fatalf("got err %v, want ErrIntegrity", err)
	}
}

func TestOpenRejectsShortBlob(t *testing.T) {
	if _, err := krypto.OpenAESGCM(testKey(t), make([]byte, krypto.NonceSize-1)); !errors.Is(err, krypto.ErrBlobTooShort) {
		t.Fatalf("got err %v, want ErrBlobTooShort", err)
	}
}
