package store_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Hussein-Mazeh/aliaser/internal/store"
)

func TestConfigRoundTrip(t *testing.T) {
	p := store.Paths{Dir: t.TempDir()}

	cfg := store.Config{
		MasterPasswordHash: "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA",
		Salt:               bytes.Repeat([]byte{0xAB}, 32),
		Version:            "1",
		YubikeyEnabled:     true,
	}
	if err := store.SaveConfig(p, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	got, err := store.LoadConfig(p)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got.MasterPasswordHash != cfg.MasterPasswordHash ||
		!bytes.Equal(got.Salt, cfg.Salt) ||
		got.Version != cfg.Version ||
		got.YubikeyEnabled != cfg.YubikeyEnabled {
		t.Fatalf("config mismatch: %+v != %+v", got, cfg)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	p := store.Paths{Dir: t.TempDir()}
	if _, err := store.LoadConfig(p); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("got err %v, want ErrNotExist", err)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	p := store.Paths{Dir: t.TempDir()}
	if err := os.WriteFile(p.ConfigPath(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := store.LoadConfig(p); !errors.Is(err, store.ErrFormat) {
		t.Fatalf("got err %v, want ErrFormat", err)
	}
}

func TestExistsRequiresPair(t *testing.T) {
	p := store.Paths{Dir: t.TempDir()}
	if p.Exists() {
		t.Fatal("empty directory reports existing vault")
	}

	if err := store.SaveConfig(p, store.Config{Version: "1"}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	if p.Exists() {
		t.Fatal("config without store reports existing vault")
	}

	if err := store.WriteBlob(p, []byte("blob")); err != nil {
		t.Fatalf("write blob: %v", err)
	}
	if !p.Exists() {
		t.Fatal("config+store pair not detected")
	}
}

func TestWriteBlobAtomicReplace(t *testing.T) {
	p := store.Paths{Dir: t.TempDir()}

	if err := store.WriteBlob(p, []byte("first")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.WriteBlob(p, []byte("second")); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got, err := store.ReadBlob(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, []byte("second")) {
		t.Fatalf("read %q, want %q", got, "second")
	}

	// No temp files may be left behind.
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the vault file, found %d entries", len(entries))
	}

	info, err := os.Stat(p.VaultPath())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("vault file permissions %o, want 600", perm)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	data := []byte("ciphertext bytes")
	if err := os.WriteFile(src, data, 0o600); err != nil {
		t.Fatalf("write src: %v", err)
	}

	if err := store.CopyFile(src, dst); err != nil {
		t.Fatalf("copy: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("copied %q, want %q", got, data)
	}
}
