package service

import (
	"errors"

	"github.com/credvault/credvault/internal/crypto"
	"github.com/credvault/credvault/internal/store"
)

// Sentinel errors owned by the service layer.
var (
	// ErrVaultLocked is returned when a vault operation needs the master
	// derived key but no master password has been verified yet.
	ErrVaultLocked = errors.New("vault is locked")

	// ErrUnauthorized is returned when the access-control check denies the
	// requested action for the calling principal.
	ErrUnauthorized = errors.New("operation not permitted")

	// ErrMaintenanceRequired is returned to vault writers while a master
	// password rotation holds the maintenance lock.
	ErrMaintenanceRequired = errors.New("engine is in maintenance mode")

	// ErrRotationRunning is returned when a rotation is requested while
	// another one is still in flight.
	ErrRotationRunning = errors.New("master password rotation already running")

	// ErrAlreadyInitialized is returned when Setup finds existing master key
	// material.
	ErrAlreadyInitialized = errors.New("master key material already exists")

	// ErrNotInitialized is returned when authentication is attempted before
	// any master key material was created.
	ErrNotInitialized = errors.New("master key material was not created yet")
)

// Errors surfaced unchanged from the layers below, re-exported so that
// callers can match the whole failure taxonomy against one package.
var (
	ErrAuthenticationFailed = crypto.ErrAuthenticationFailed
	ErrDecryptionFailed     = crypto.ErrDecryptionFailed

	ErrItemNotFound    = store.ErrItemNotFound
	ErrVersionConflict = store.ErrVersionConflict
	ErrLinkNotFound    = store.ErrLinkNotFound
	ErrLinkExpired     = store.ErrLinkExpired
	ErrLinkExhausted   = store.ErrLinkExhausted
	ErrTaskNotFound    = store.ErrTaskNotFound
)
