// Package tokens separates the two forms a refresh credential can take.
//
// A RawSecret is the bearer value handed to the client exactly once; it is
// never stored. A Fingerprint is the one-way digest of a RawSecret and is
// the only form persisted and used as a lookup key. The two are distinct
// types so one cannot be passed where the other is expected.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// SecretSize is the number of random bytes behind a RawSecret.
const SecretSize = 32

// RawSecret is the plaintext refresh credential.
type RawSecret string

// Fingerprint is base64url(SHA-256(raw)).
type Fingerprint string

// NewRawSecret draws SecretSize bytes from crypto/rand and encodes them as
// unpadded base64url, which is safe in cookies and gRPC metadata.
func NewRawSecret() (RawSecret, error) {
	b := make([]byte, SecretSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error generating refresh secret: %w", err)
	}
	return RawSecret(base64.RawURLEncoding.EncodeToString(b)), nil
}

// Protect derives the storage fingerprint of raw. It is deterministic and
// has no inverse.
func Protect(raw RawSecret) Fingerprint {
	sum := sha256.Sum256([]byte(raw))
	return Fingerprint(base64.RawURLEncoding.EncodeToString(sum[:]))
}

// String hides the secret from fmt verbs.
func (r RawSecret) String() string {
	if r == "" {
		return ""
	}
	return "[redacted]"
}

// GoString hides the secret from %#v.
func (r RawSecret) GoString() string {
	return r.String()
}

// Value returns the plaintext for the transport layer.
func (r RawSecret) Value() string {
	return string(r)
}
