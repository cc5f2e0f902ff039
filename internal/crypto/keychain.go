// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"io"

	"github.com/credvault/credvault/models"
	"golang.org/x/crypto/argon2"
)

// saltLen is the length of the Argon2id salt generated for new master key
// material.
const saltLen = 16

// keyChain is the private implementation of [KeyChain].
type keyChain struct {
	// Argon2id tuning parameters. Stored in the struct so they can be
	// adjusted per deployment target.
	params models.KDFParams

	// authSalt domain-separates the stored verification hash from the
	// derived key itself: hash = SHA-256(key ‖ authSalt). Server-side
	// secret, supplied from configuration.
	authSalt []byte

	// linkSalt is the server-side secret mixed into public link key
	// derivation, so possession of a link hash alone is not enough to
	// reconstruct the snapshot key off-server.
	linkSalt []byte
}

// NewKeyChain constructs a [KeyChain] with the Argon2id parameters
// recommended by OWASP (2024):
//   - time cost:   1 iteration
//   - memory cost: 64 MiB
//   - parallelism: 4 threads
//   - key length:  32 bytes (256 bits)
//
// authSalt and linkSalt are deployment-wide secrets from configuration;
// they must be distinct values.
func NewKeyChain(authSalt, linkSalt []byte) KeyChain {
	return &keyChain{
		params: models.KDFParams{
			Time:      1,
			MemoryKiB: 64 * 1024, // 64 MiB
			Threads:   4,
			KeyLen:    32, // 256 bits
		},
		authSalt: authSalt,
		linkSalt: linkSalt,
	}
}

// NewMasterKeyMaterial implements [KeyChain]. It reads a fresh salt from the
// OS CSPRNG, derives the key with Argon2id, and computes the verification
// hash that [keyChain.DeriveKey] will later compare against. Returns an
// error only if the random read fails.
func (k *keyChain) NewMasterKeyMaterial(masterPassword string) (models.MasterKeyMaterial, []byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return models.MasterKeyMaterial{}, nil, err
	}

	key := k.deriveRaw(masterPassword, salt, k.params)

	material := models.MasterKeyMaterial{
		Salt:       salt,
		SaltedHash: k.verificationHash(key),
		Params:     k.params,
	}

	return material, key, nil
}

// DeriveKey implements [KeyChain]. The candidate password is stretched with
// the KDF parameters recorded in material (not the keychain defaults, so old
// installations keep working after a parameter upgrade), and the resulting
// key is verified against the stored hash in constant time.
//
// The comparison cost does not depend on which byte differs, so a caller
// cannot distinguish "wrong password" from "no such user" by timing.
func (k *keyChain) DeriveKey(candidatePassword string, material models.MasterKeyMaterial) ([]byte, error) {
	key := k.deriveRaw(candidatePassword, material.Salt, material.Params)

	if subtle.ConstantTimeCompare(k.verificationHash(key), material.SaltedHash) != 1 {
		return nil, ErrAuthenticationFailed
	}

	return key, nil
}

// deriveRaw runs Argon2id over the password and salt with the given
// parameters.
func (k *keyChain) deriveRaw(password string, salt []byte, params models.KDFParams) []byte {
	return argon2.IDKey(
		[]byte(password),
		salt,
		params.Time,
		params.MemoryKiB,
		params.Threads,
		params.KeyLen,
	)
}

// verificationHash computes SHA-256(key ‖ authSalt). The authSalt
// domain-separates the stored hash from the key: the persisted value cannot
// be used as an encryption key even if the database leaks.
func (k *keyChain) verificationHash(key []byte) []byte {
	h := sha256.New()
	h.Write(key)
	h.Write(k.authSalt)
	return h.Sum(nil)
}
