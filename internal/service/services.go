// SPDX-License-Identifier: Apache-2.0

// Package service implements the vault engine's use cases on top of the
// repositories, the keychain and the access-control checker. Services share
// one maintenance gate and one in-memory master key; everything else is
// injected.
package service

import (
	"time"

	"github.com/credvault/credvault/internal/acl"
	"github.com/credvault/credvault/internal/audit"
	"github.com/credvault/credvault/internal/crypto"
	"github.com/credvault/credvault/internal/logger"
	"github.com/credvault/credvault/internal/store"
)

// Config carries the policy defaults and tuning the services need.
type Config struct {
	DefaultLinkTTL  time.Duration
	DefaultMaxViews int64

	RotationBatchSize   int
	RotationParallelism int
	ProgressQueueSize   int
}

// Services aggregates every use-case service over shared state.
type Services struct {
	Auth     *MasterAuthService
	Vault    *VaultService
	Links    *PublicLinkService
	Rotation *RotationService
}

// NewServices wires the full service layer.
func NewServices(repos *store.Repositories, chain crypto.KeyChain, checker *acl.Checker, sink audit.Sink, log *logger.Logger, cfg Config) *Services {
	gate := &MaintenanceGate{}
	holder := &keyHolder{}

	return &Services{
		Auth:     NewMasterAuthService(repos.Keys, chain, holder, log),
		Vault:    NewVaultService(repos.Items, repos.Links, chain, checker, holder, gate, log),
		Links:    NewPublicLinkService(repos.Links, repos.Items, chain, checker, sink, holder, log, cfg),
		Rotation: NewRotationService(repos.Items, repos.Tasks, repos.Keys, chain, checker, holder, gate, log, cfg),
	}
}
