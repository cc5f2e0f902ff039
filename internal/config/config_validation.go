// SPDX-License-Identifier: Apache-2.0

package config

import "time"

// Fallbacks applied by applyDefaults for fields left unset by every source.
const (
	defaultLinkTTL           = 24 * time.Hour
	defaultLinkMaxViews      = 3
	defaultRotationBatchSize = 100
	defaultParallelism       = 4
	defaultProgressQueueSize = 16
	defaultAuditQueueSize    = 256
)

// applyDefaults fills policy and tuning fields that no configuration source
// provided. Secrets (salts) and the DSN have no defaults: they must be
// supplied explicitly and are enforced by validate.
func (cfg *StructuredConfig) applyDefaults() {
	if cfg.Vault.DefaultLinkTTL == 0 {
		cfg.Vault.DefaultLinkTTL = defaultLinkTTL
	}
	if cfg.Vault.DefaultMaxViews == 0 {
		cfg.Vault.DefaultMaxViews = defaultLinkMaxViews
	}
	if cfg.Rotation.BatchSize == 0 {
		cfg.Rotation.BatchSize = defaultRotationBatchSize
	}
	if cfg.Rotation.Parallelism == 0 {
		cfg.Rotation.Parallelism = defaultParallelism
	}
	if cfg.Rotation.ProgressQueueSize == 0 {
		cfg.Rotation.ProgressQueueSize = defaultProgressQueueSize
	}
	if cfg.Audit.QueueSize == 0 {
		cfg.Audit.QueueSize = defaultAuditQueueSize
	}
	if cfg.Storage.DB.Driver == "" {
		cfg.Storage.DB.Driver = "pgx"
	}
}

// validate checks that the final merged [StructuredConfig] satisfies all
// engine invariants before it is used at startup.
//
// Returns nil if the configuration is valid, or a descriptive error
// otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Storage.DB.Driver != "pgx" && cfg.Storage.DB.Driver != "sqlite3" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Vault.AuthSalt == "" || cfg.Vault.LinkSalt == "" {
		return ErrInvalidVaultConfigs
	}

	if cfg.Vault.AuthSalt == cfg.Vault.LinkSalt {
		return ErrInvalidVaultConfigs
	}

	if cfg.Vault.DefaultMaxViews < 1 || cfg.Vault.DefaultLinkTTL < time.Minute {
		return ErrInvalidVaultConfigs
	}

	return nil
}
