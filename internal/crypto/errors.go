package crypto

import "errors"

// Sentinel errors returned by the keychain. Callers should match them with
// [errors.Is]; no additional detail is attached to decryption failures so
// that callers cannot distinguish a wrong key from a tampered blob.
var (
	// ErrAuthenticationFailed is returned when a candidate master password
	// does not verify against the stored material. Recoverable: the caller
	// may prompt for the password again.
	ErrAuthenticationFailed = errors.New("master password verification failed")

	// ErrDecryptionFailed is returned when a sealed blob cannot be opened:
	// wrong key, truncated or corrupted data, or an unknown blob version.
	// Fatal to the operation that attempted it.
	ErrDecryptionFailed = errors.New("decryption failed")
)
