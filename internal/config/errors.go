package config

import "errors"

// Validation errors returned by [StructuredConfig.validate].
var (
	// ErrInvalidStorageConfigs is returned when the DSN is missing or the
	// driver is not one of the supported backends.
	ErrInvalidStorageConfigs = errors.New("invalid storage configs")

	// ErrInvalidVaultConfigs is returned when the cryptographic salts are
	// missing, equal to each other, or the link policy bounds are
	// nonsensical.
	ErrInvalidVaultConfigs = errors.New("invalid vault configs")
)
