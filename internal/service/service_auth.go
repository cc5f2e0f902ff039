// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/credvault/credvault/internal/crypto"
	"github.com/credvault/credvault/internal/logger"
	"github.com/credvault/credvault/internal/store"
)

// MasterAuthService manages the master password lifecycle: installation,
// verification and locking. A successful Setup or Unlock places the derived
// key into the shared in-memory holder; every sealing operation reads it
// from there.
type MasterAuthService struct {
	keys   store.KeyRepository
	chain  crypto.KeyChain
	holder *keyHolder
	logger *logger.Logger
}

func NewMasterAuthService(keys store.KeyRepository, chain crypto.KeyChain, holder *keyHolder, log *logger.Logger) *MasterAuthService {
	return &MasterAuthService{
		keys:   keys,
		chain:  chain,
		holder: holder,
		logger: log,
	}
}

// Setup creates the installation's master key material from masterPassword
// and unlocks the vault. Fails with [ErrAlreadyInitialized] if material
// already exists.
func (s *MasterAuthService) Setup(ctx context.Context, masterPassword string) error {
	log := logger.FromContext(ctx)

	_, err := s.keys.Get(ctx)
	if err == nil {
		return ErrAlreadyInitialized
	}
	if !errors.Is(err, store.ErrMasterKeyNotFound) {
		return fmt.Errorf("load master key material: %w", err)
	}

	material, key, err := s.chain.NewMasterKeyMaterial(masterPassword)
	if err != nil {
		return fmt.Errorf("generate master key material: %w", err)
	}
	material.UpdatedAt = time.Now().UTC()

	if err := s.keys.Save(ctx, material); err != nil {
		return fmt.Errorf("save master key material: %w", err)
	}

	s.holder.replace(key)

	log.Info().Str("func", "MasterAuthService.Setup").Msg("master key material created, vault unlocked")

	return nil
}

// Unlock verifies masterPassword against the stored material and, on
// success, places the derived key into memory. A wrong password yields
// [ErrAuthenticationFailed]; a missing installation yields
// [ErrNotInitialized].
func (s *MasterAuthService) Unlock(ctx context.Context, masterPassword string) error {
	log := logger.FromContext(ctx)

	material, err := s.keys.Get(ctx)
	if err != nil {
		if errors.Is(err, store.ErrMasterKeyNotFound) {
			return ErrNotInitialized
		}
		return fmt.Errorf("load master key material: %w", err)
	}

	key, err := s.chain.DeriveKey(masterPassword, material)
	if err != nil {
		log.Warn().Str("func", "MasterAuthService.Unlock").Msg("master password verification failed")
		return err
	}

	s.holder.replace(key)

	log.Info().Str("func", "MasterAuthService.Unlock").Msg("vault unlocked")

	return nil
}

// Lock drops the in-memory key. Subsequent sealing operations fail with
// [ErrVaultLocked] until the next Unlock.
func (s *MasterAuthService) Lock() {
	s.holder.replace(nil)
}
