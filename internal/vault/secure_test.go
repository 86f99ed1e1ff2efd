package vault

import (
	"bytes"
	"testing"
)

func TestSecureKeyUseAndDestroy(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	want := bytes.Clone(src)

	sk := NewSecureKey(src)

	// Sealing takes ownership and wipes the source slice.
	if !bytes.Equal(src, make([]byte, len(src))) {
		t.Fatal("source slice was not wiped")
	}

	err := sk.Use(func(key []byte) error {
		if !bytes.Equal(key, want) {
			t.Fatalf("key %v, want %v", key, want)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("use: %v", err)
	}

	// Usable repeatedly until destroyed.
	if err := sk.Use(func([]byte) error { return nil }); err != nil {
		t.Fatalf("second use: %v", err)
	}

	sk.Destroy()
	sk.Destroy() // idempotent
	if err := sk.Use(func([]byte) error { return nil }); err == nil {
		t.Fatal("use after destroy succeeded")
	}
}

func TestSecureKeyNilSafety(t *testing.T) {
	var sk *SecureKey
	sk.Destroy()
	if err := sk.Use(func([]byte) error { return nil }); err == nil {
		t.Fatal("use of nil key succeeded")
	}
	if NewSecureKey(nil) != nil {
		t.Fatal("empty key produced a live SecureKey")
	}
}
