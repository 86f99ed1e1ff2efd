// Package store owns the two on-disk artifacts of a vault: the plaintext
// JSON config and the encrypted store blob. Both are written through a
// temp-file-then-rename so a crash mid-write never leaves a half-written
// vault behind.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	configFilename = "aliaser.config"
	vaultFilename  = "aliaser.vault"
)

// ErrFormat indicates an on-disk structure could not be parsed. Fatal for
// that file; surfaced to the caller undecorated beyond the wrap.
var ErrFormat = errors.New("malformed vault file")

// Config is the plaintext vault configuration persisted beside the store.
// Everything here is safe to read without the master secret; only the
// verification hash is secret-derived, and it is self-describing.
type Config struct {
	MasterPasswordHash string `json:"master_password_hash"`
	Salt               []byte `json:"salt"`
	Version            string `json:"version"`
	YubikeyEnabled     bool   `json:"yubikey_enabled"`
}

// Paths locates vault artifacts on disk.
type Paths struct {
	Dir string
}

// ConfigPath resolves the config file path.
func (p Paths) ConfigPath() string {
	return filepath.Join(p.Dir, configFilename)
}

// VaultPath resolves the encrypted store file path.
func (p Paths) VaultPath() string {
	return filepath.Join(p.Dir, vaultFilename)
}

func (p Paths) ensureDir() error {
	if p.Dir == "" {
		return errors.New("vault directory not specified")
	}
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return fmt.Errorf("create vault directory: %w", err)
	}
	return nil
}

// Exists reports whether both halves of the vault pair are present.
// A lone config or lone store counts as not initialized.
func (p Paths) Exists() bool {
	if _, err := os.Stat(p.ConfigPath()); err != nil {
		return false
	}
	if _, err := os.Stat(p.VaultPath()); err != nil {
		return false
	}
	return true
}

// LoadConfig reads and parses the vault config.
func LoadConfig(p Paths) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(p.ConfigPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: decode config: %v", ErrFormat, err)
	}
	return cfg, nil
}

// SaveConfig persists the vault config atomically with restrictive permissions.
func SaveConfig(p Paths, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return writeAtomic(p, p.ConfigPath(), "config-*", data)
}

// ReadBlob reads the encrypted store file as raw bytes.
func ReadBlob(p Paths) ([]byte, error) {
	data, err := os.ReadFile(p.VaultPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("read vault file: %w", err)
	}
	return data, nil
}

// WriteBlob atomically replaces the encrypted store file.
func WriteBlob(p Paths, blob []byte) error {
	return writeAtomic(p, p.VaultPath(), "vault-*", blob)
}

// CopyFile copies src to dst byte-for-byte. Used for export and import of
// the already-encrypted blob; no cryptographic work happens here.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}

func writeAtomic(p Paths, dest, pattern string, data []byte) error {
	if err := p.ensureDir(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(p.Dir, pattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", dest, err)
	}
	return nil
}
