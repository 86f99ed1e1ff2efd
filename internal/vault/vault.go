// Package vault implements the lifecycle of a single on-disk vault: a
// plaintext config and an encrypted store that exist as a pair, plus the
// derived key that exists only while a session holds the vault unlocked.
//
// States: Uninitialized (no pair on disk) → Locked (pair present, no key)
// → Unlocked (pair present, key held). There is no lock transition; a
// session ends by Close, which scrubs the key.
package vault

import (
	"errors"
	"fmt"
	"os"

	"github.com/Hussein-Mazeh/aliaser/internal/store"
	"github.com/Hussein-Mazeh/aliaser/krypto"
)

// FormatVersion is written into every new config and bumped only when the
// cipher suite or derivation parameters change.
const FormatVersion = "1"

// State identifies the lifecycle position of a Manager.
type State int

const (
	Uninitialized State = iota
	Locked
	Unlocked
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// Manager owns one vault directory and, while unlocked, the derived key.
// It is not safe for concurrent use; one process owns one vault at a time.
type Manager struct {
	paths store.Paths
	token krypto.TokenProvider
	key   *SecureKey
}

// New returns a manager bound to a vault directory. The token provider may
// be nil when hardware support is not compiled in or not wanted; it is only
// consulted for vaults with the hardware factor enabled.
func New(dir string, token krypto.TokenProvider) *Manager {
	return &Manager{
		paths: store.Paths{Dir: dir},
		token: token,
	}
}

// State derives the current lifecycle state from disk and held key.
func (m *Manager) State() State {
	if m.key != nil {
		return Unlocked
	}
	if m.paths.Exists() {
		return Locked
	}
	return Uninitialized
}

// IsInitialized reports whether the config+store pair exists on disk.
func (m *Manager) IsInitialized() bool {
	return m.paths.Exists()
}

// Initialize creates a brand-new vault: fresh salt, password-verification
// hash, derived key, and an encrypted store containing initialStore (the
// serialized empty record store, supplied by the owner of the record
// format). Valid only from Uninitialized; ends Unlocked.
func (m *Manager) Initialize(password []byte, enableToken bool, initialStore []byte) error {
	if m.State() != Uninitialized {
		return fmt.Errorf("%w: vault already initialized", ErrInvalidState)
	}
	if enableToken && (m.token == nil || !m.token.Present()) {
		return fmt.Errorf("%w: token required for two-factor initialization", ErrHardwareUnavailable)
	}

	salt, err := krypto.NewRandomSalt()
	if err != nil {
		return err
	}

	hash, err := krypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash master password: %w", err)
	}

	key, err := krypto.DeriveVaultKey(password, salt, m.token, enableToken)
	if err != nil {
		return err
	}

	blob, err := krypto.SealAESGCM(key, initialStore)
	if err != nil {
		krypto.Zeroize(key)
		return fmt.Errorf("seal initial store: %w", err)
	}

	cfg := store.Config{
		MasterPasswordHash: hash,
		Salt:               salt,
		Version:            FormatVersion,
		YubikeyEnabled:     enableToken,
	}
	if err := store.SaveConfig(m.paths, cfg); err != nil {
		krypto.Zeroize(key)
		return err
	}
	if err := store.WriteBlob(m.paths, blob); err != nil {
		krypto.Zeroize(key)
		return err
	}

	m.key = NewSecureKey(key)
	return nil
}

// Unlock verifies the password against the stored hash and derives the
// vault key. Valid only from Locked. A wrong password fails before any key
// material is produced and before the store file is touched.
func (m *Manager) Unlock(password []byte) error {
	if m.State() != Locked {
		return fmt.Errorf("%w: vault is %s", ErrInvalidState, m.State())
	}

	cfg, err := m.loadConfig()
	if err != nil {
		return err
	}

	if err := krypto.VerifyPassword(password, cfg.MasterPasswordHash); err != nil {
		if errors.Is(err, krypto.ErrPasswordMismatch) {
			return ErrAuthentication
		}
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}

	if cfg.YubikeyEnabled && (m.token == nil || !m.token.Present()) {
		return fmt.Errorf("%w: token required to unlock this vault", ErrHardwareUnavailable)
	}

	key, err := krypto.DeriveVaultKey(password, cfg.Salt, m.token, cfg.YubikeyEnabled)
	if err != nil {
		return err
	}

	m.key = NewSecureKey(key)
	return nil
}

// ReadStore decrypts and returns the serialized record store. Unlocked only.
func (m *Manager) ReadStore() ([]byte, error) {
	if m.State() != Unlocked {
		return nil, fmt.Errorf("%w: vault is %s", ErrInvalidState, m.State())
	}

	blob, err := store.ReadBlob(m.paths)
	if err != nil {
		return nil, err
	}

	var plaintext []byte
	err = m.key.Use(func(key []byte) error {
		var openErr error
		plaintext, openErr = krypto.OpenAESGCM(key, blob)
		return openErr
	})
	if err != nil {
		return nil, mapOpenErr(err)
	}
	return plaintext, nil
}

// WriteStore seals data under the held key and atomically replaces the
// on-disk blob. Unlocked only.
func (m *Manager) WriteStore(data []byte) error {
	if m.State() != Unlocked {
		return fmt.Errorf("%w: vault is %s", ErrInvalidState, m.State())
	}

	var blob []byte
	err := m.key.Use(func(key []byte) error {
		var sealErr error
		blob, sealErr = krypto.SealAESGCM(key, data)
		return sealErr
	})
	if err != nil {
		return fmt.Errorf("seal store: %w", err)
	}

	return store.WriteBlob(m.paths, blob)
}

// RotateMasterSecret re-keys the vault: verifies oldPassword, reads the
// current store, generates a fresh salt and verification hash for
// newPassword, derives the new key, persists the new config, and re-seals
// the store. The hardware-factor setting is preserved across rotation; a
// two-factor vault therefore needs its token present to rotate, exactly as
// it does to unlock. Ends Unlocked under the new key.
func (m *Manager) RotateMasterSecret(oldPassword, newPassword []byte) error {
	if m.State() == Uninitialized {
		return fmt.Errorf("%w: vault not initialized", ErrInvalidState)
	}

	cfg, err := m.loadConfig()
	if err != nil {
		return err
	}

	if err := krypto.VerifyPassword(oldPassword, cfg.MasterPasswordHash); err != nil {
		if errors.Is(err, krypto.ErrPasswordMismatch) {
			return ErrAuthentication
		}
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}

	if cfg.YubikeyEnabled && (m.token == nil || !m.token.Present()) {
		return fmt.Errorf("%w: token required to rotate this vault", ErrHardwareUnavailable)
	}

	oldKey, err := krypto.DeriveVaultKey(oldPassword, cfg.Salt, m.token, cfg.YubikeyEnabled)
	if err != nil {
		return err
	}
	defer krypto.Zeroize(oldKey)

	blob, err := store.ReadBlob(m.paths)
	if err != nil {
		return err
	}
	plaintext, err := krypto.OpenAESGCM(oldKey, blob)
	if err != nil {
		return mapOpenErr(err)
	}
	defer krypto.Zeroize(plaintext)

	newSalt, err := krypto.NewRandomSalt()
	if err != nil {
		return err
	}
	newHash, err := krypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash new master password: %w", err)
	}
	newKey, err := krypto.DeriveVaultKey(newPassword, newSalt, m.token, cfg.YubikeyEnabled)
	if err != nil {
		return err
	}

	newBlob, err := krypto.SealAESGCM(newKey, plaintext)
	if err != nil {
		krypto.Zeroize(newKey)
		return fmt.Errorf("reseal store: %w", err)
	}

	cfg.MasterPasswordHash = newHash
	cfg.Salt = newSalt
	cfg.Version = FormatVersion
	if err := store.SaveConfig(m.paths, cfg); err != nil {
		krypto.Zeroize(newKey)
		return err
	}
	if err := store.WriteBlob(m.paths, newBlob); err != nil {
		krypto.Zeroize(newKey)
		return err
	}

	m.key.Destroy()
	m.key = NewSecureKey(newKey)
	return nil
}

// Export copies the encrypted store file as-is to path. Unlocked only.
func (m *Manager) Export(path string) error {
	if m.State() != Unlocked {
		return fmt.Errorf("%w: vault is %s", ErrInvalidState, m.State())
	}
	return store.CopyFile(m.paths.VaultPath(), path)
}

// Import replaces the store file with the candidate at path, but only
// after confirming the candidate decrypts under the currently held key.
// A non-nil validate is additionally run over the decrypted plaintext, so
// the record-format owner can reject a blob that decrypts to something it
// cannot parse. The on-disk store is untouched on any failure. Unlocked
// only.
func (m *Manager) Import(path string, validate func(plaintext []byte) error) error {
	if m.State() != Unlocked {
		return fmt.Errorf("%w: vault is %s", ErrInvalidState, m.State())
	}

	candidate, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	err = m.key.Use(func(key []byte) error {
		plaintext, openErr := krypto.OpenAESGCM(key, candidate)
		if openErr != nil {
			return mapOpenErr(openErr)
		}
		defer krypto.Zeroize(plaintext)
		if validate != nil {
			return validate(plaintext)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return store.WriteBlob(m.paths, candidate)
}

// HardwareEnabled reports whether the on-disk config requires the token.
func (m *Manager) HardwareEnabled() (bool, error) {
	cfg, err := m.loadConfig()
	if err != nil {
		return false, err
	}
	return cfg.YubikeyEnabled, nil
}

// Close ends the session and scrubs the held key. The manager drops back
// to Locked (or Uninitialized) and can be discarded.
func (m *Manager) Close() {
	m.key.Destroy()
	m.key = nil
}

// mapOpenErr classifies AEAD open failures: a blob too short to carry a
// nonce is a malformed file, not a failed authentication.
func mapOpenErr(err error) error {
	if errors.Is(err, krypto.ErrBlobTooShort) {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return err
}

func (m *Manager) loadConfig() (store.Config, error) {
	cfg, err := store.LoadConfig(m.paths)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("%w: vault not initialized", ErrInvalidState)
		}
		return cfg, err
	}
	if len(cfg.Salt) != krypto.SaltLengthBytes {
		return cfg, fmt.Errorf("%w: config salt has length %d", ErrFormat, len(cfg.Salt))
	}
	return cfg, nil
}
