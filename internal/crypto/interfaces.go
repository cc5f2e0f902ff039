package crypto

import "github.com/credvault/credvault/models"

// KeyChain bundles every cryptographic primitive the vault engine needs:
// master-key derivation and verification, authenticated sealing of secret
// payloads, and the session-independent key material for public links.
//
// All methods are pure with respect to the receiver and safe for concurrent
// use. Keys live only in memory; the keychain never persists anything.
type KeyChain interface {
	// NewMasterKeyMaterial generates fresh verification material for
	// masterPassword: a random KDF salt, the Argon2id parameters in use,
	// and a keyed hash of the derived key. The derived key is returned so
	// that installation and rotation can seal data immediately.
	NewMasterKeyMaterial(masterPassword string) (models.MasterKeyMaterial, []byte, error)

	// DeriveKey verifies candidatePassword against the stored material and,
	// on success, returns the symmetric key derived from it. Verification
	// uses a constant-time comparison; a mismatch yields
	// [ErrAuthenticationFailed] and a nil key.
	DeriveKey(candidatePassword string, material models.MasterKeyMaterial) ([]byte, error)

	// Seal encrypts plaintext under key with authenticated encryption and
	// returns a versioned self-describing blob.
	Seal(plaintext, key []byte) ([]byte, error)

	// Open decrypts a blob produced by Seal. Any tampering, truncation, or
	// wrong key yields [ErrDecryptionFailed], never garbage plaintext.
	Open(blob, key []byte) ([]byte, error)

	// NewLinkHash returns a cryptographically random, URL-safe, fixed-length
	// redemption token for a public link.
	NewLinkHash() (string, error)

	// DeriveLinkKey derives the sealing key for a public link snapshot from
	// the server-side link salt and the link hash. No session or master-key
	// material is involved, so redemption works without authentication.
	DeriveLinkKey(linkSalt []byte, hash string) ([]byte, error)
}
