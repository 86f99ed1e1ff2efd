// Package service exposes high-level vault operations for the CLI: it owns
// a vault.Manager for the session and translates between the encrypted
// opaque store and the identity records the shell works with.
package service

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Hussein-Mazeh/aliaser/internal/identity"
	"github.com/Hussein-Mazeh/aliaser/internal/vault"
	"github.com/Hussein-Mazeh/aliaser/krypto"
)

// Service binds a vault manager to the identity record format.
type Service struct {
	mgr *vault.Manager
	log zerolog.Logger
}

// New returns a service bound to a vault directory.
func New(vaultDir string, token krypto.TokenProvider, log zerolog.Logger) *Service {
	return &Service{
		mgr: vault.New(vaultDir, token),
		log: log,
	}
}

// Close ends the session and scrubs the vault key.
func (s *Service) Close() {
	s.mgr.Close()
}

// IsInitialized reports whether the vault pair exists on disk.
func (s *Service) IsInitialized() bool {
	return s.mgr.IsInitialized()
}

// HardwareEnabled reports whether this vault requires the token.
func (s *Service) HardwareEnabled() (bool, error) {
	return s.mgr.HardwareEnabled()
}

// Initialize creates a new vault sealed around an empty identity collection.
func (s *Service) Initialize(master []byte, enableToken bool) error {
	empty, err := identity.NewCollection().Encode()
	if err != nil {
		return err
	}

	s.log.Debug().Bool("token", enableToken).Msg("initializing vault")
	if err := s.mgr.Initialize(master, enableToken, empty); err != nil {
		return err
	}
	s.log.Debug().Msg("vault initialized")
	return nil
}

// Unlock verifies the master password and derives the session key.
func (s *Service) Unlock(master []byte) error {
	s.log.Debug().Msg("unlocking vault")
	return s.mgr.Unlock(master)
}

// RotateMaster re-keys the vault from the old to the new master password.
func (s *Service) RotateMaster(oldMaster, newMaster []byte) error {
	s.log.Debug().Msg("rotating master secret")
	return s.mgr.RotateMasterSecret(oldMaster, newMaster)
}

// AddIdentity stores a new identity; the service name must be unused.
func (s *Service) AddIdentity(id identity.Identity) error {
	return s.mutate(func(c identity.Collection) error {
		return c.Add(id)
	})
}

// GetIdentity returns the identity for a service.
func (s *Service) GetIdentity(name string) (identity.Identity, error) {
	c, err := s.load()
	if err != nil {
		return identity.Identity{}, err
	}
	return c.Get(name)
}

// ListServices returns all stored service names, sorted.
func (s *Service) ListServices() ([]string, error) {
	c, err := s.load()
	if err != nil {
		return nil, err
	}
	return c.Services(), nil
}

// UpdateIdentity replaces the identity stored for a service.
func (s *Service) UpdateIdentity(name string, id identity.Identity) error {
	return s.mutate(func(c identity.Collection) error {
		return c.Update(name, id)
	})
}

// DeleteIdentity removes the identity for a service.
func (s *Service) DeleteIdentity(name string) error {
	return s.mutate(func(c identity.Collection) error {
		return c.Delete(name)
	})
}

// Export copies the encrypted store file to path as an encrypted backup.
func (s *Service) Export(path string) error {
	s.log.Debug().Str("path", path).Msg("exporting encrypted store")
	return s.mgr.Export(path)
}

// Import replaces the store with the file at path after the manager has
// confirmed it decrypts under the current key and parses as an identity
// collection.
func (s *Service) Import(path string) error {
	s.log.Debug().Str("path", path).Msg("importing encrypted store")
	return s.mgr.Import(path, func(plaintext []byte) error {
		if _, err := identity.Decode(plaintext); err != nil {
			return fmt.Errorf("%w: %v", vault.ErrFormat, err)
		}
		return nil
	})
}

func (s *Service) load() (identity.Collection, error) {
	data, err := s.mgr.ReadStore()
	if err != nil {
		return identity.Collection{}, err
	}
	defer krypto.Zeroize(data)

	c, err := identity.Decode(data)
	if err != nil {
		return identity.Collection{}, fmt.Errorf("%w: %v", vault.ErrFormat, err)
	}
	return c, nil
}

func (s *Service) mutate(fn func(identity.Collection) error) error {
	c, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}

	data, err := c.Encode()
	if err != nil {
		return err
	}
	defer krypto.Zeroize(data)

	return s.mgr.WriteStore(data)
}
