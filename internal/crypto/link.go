// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/hkdf"
)

// linkHashLen is the number of random bytes behind a public link token.
// 32 bytes gives 256 bits of entropy; the encoded token is a fixed 43
// characters of the URL-safe base64 alphabet.
const linkHashLen = 32

// NewLinkHash implements [KeyChain]. It reads 32 bytes from the OS CSPRNG
// and encodes them with unpadded URL-safe base64. Returns an error if the
// random read fails.
func (k *keyChain) NewLinkHash() (string, error) {
	raw := make([]byte, linkHashLen)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DeriveLinkKey implements [KeyChain]. The snapshot key is
// HKDF-SHA256(ikm = linkSalt, info = "credvault/publink:" ‖ hash), 32 bytes.
// linkSalt overrides the keychain's configured salt when non-nil, which lets
// tests supply a fixed value.
//
// Only server-side salt and the link hash go into the derivation; no user
// session material, so a link stays redeemable after the issuing session
// is gone.
func (k *keyChain) DeriveLinkKey(linkSalt []byte, hash string) ([]byte, error) {
	ikm := linkSalt
	if ikm == nil {
		ikm = k.linkSalt
	}

	r := hkdf.New(sha256.New, ikm, nil, append([]byte("credvault/publink:"), hash...))

	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}

	return key, nil
}
