// Package identity mints the opaque, unguessable strings the relay hands
// out: peer identifiers and per-room delete tokens. Room hashes are
// supplied by clients and are never generated here.
package identity

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"io"
)

// tokenBytes matches : 16 random bytes, URL-safe base encoding.
const tokenBytes = 16

// randomBytes fills n cryptographically secure random bytes.
func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// randomStringURLSafe returns a base64url (no padding) encoding of n
// random bytes, so the caller knows it is a CSPRNG draw of that width.
func randomStringURLSafe(n int) (string, error) {
	b, err := randomBytes(n)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewPeerID mints a relay-owned peer identifier. One is drawn per
// join/create act and is never reused across sessions.
func NewPeerID() (string, error) {
	return randomStringURLSafe(tokenBytes)
}

// NewDeleteToken mints an unguessable delete-authorization capability,
// disclosed once to the room's creator.
func NewDeleteToken() (string, error) {
	return randomStringURLSafe(tokenBytes)
}

// EqualTokens compares two delete tokens in constant time so that a
// mismatched length or prefix does not leak timing information about how
// much of the token was guessed correctly.
func EqualTokens(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
