// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"
)

// Sealed blob layout, decoded by a dedicated parser rather than any generic
// deserialization of untrusted bytes:
//
//	blob = version(1) ‖ nonce(12) ‖ ciphertext+tag
//
// The version byte allows the format to evolve (e.g. a different AEAD)
// without re-encrypting existing data eagerly.
const (
	blobVersionGCM = 0x01

	gcmNonceLen = 12
	gcmTagLen   = 16

	// minBlobLen is the smallest well-formed blob: version, nonce and the
	// tag of an empty plaintext.
	minBlobLen = 1 + gcmNonceLen + gcmTagLen
)

// Seal implements [KeyChain]. It encrypts plaintext under key with
// AES-256-GCM using a fresh random nonce per call, and prepends the format
// version and the nonce so [keyChain.Open] is self-contained. Returns an
// error if cipher construction or the random nonce read fails.
func (k *keyChain) Seal(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcmNonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	blob := make([]byte, 0, 1+gcmNonceLen+len(plaintext)+gcmTagLen)
	blob = append(blob, blobVersionGCM)
	blob = append(blob, nonce...)
	blob = gcm.Seal(blob, nonce, plaintext, nil)

	return blob, nil
}

// Open implements [KeyChain]. It parses the versioned blob produced by
// [keyChain.Seal] and decrypts it. Every failure mode — unknown version,
// truncated blob, wrong key, or any flipped bit in nonce/ciphertext/tag —
// collapses to [ErrDecryptionFailed]: the caller learns that the operation
// failed, not why.
func (k *keyChain) Open(blob, key []byte) ([]byte, error) {
	if len(blob) < minBlobLen {
		return nil, ErrDecryptionFailed
	}

	if blob[0] != blobVersionGCM {
		return nil, ErrDecryptionFailed
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	nonce, ciphertext := blob[1:1+gcmNonceLen], blob[1+gcmNonceLen:]

	// An authentication error here almost always means the blob was sealed
	// under a different (stale or wrong) master key.
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}
