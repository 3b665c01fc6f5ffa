package auth

import "crypto/subtle"

// SaltLength is the number of leading digest characters disclosed as the salt.
const SaltLength = 64

// Verifier checks presented credentials against a Store.
type Verifier struct {
	store *Store
}

// NewVerifier creates a Verifier backed by store.
func NewVerifier(store *Store) *Verifier {
	return &Verifier{store: store}
}

// Authenticate reports whether presented matches the stored digest for user.
//
// Unknown users return false straight away. For known users the digests are
// compared in constant time, so the time taken does not depend on where the
// first differing byte is.
func (v *Verifier) Authenticate(user, presented string) bool {
	stored, ok := v.store.Digest(user)
	if !ok || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// SaltOf returns the salt prefix of the stored digest for user, or "" if the
// user is unknown. A digest shorter than SaltLength is returned whole.
func (v *Verifier) SaltOf(user string) string {
	stored, ok := v.store.Digest(user)
	if !ok {
		return ""
	}
	if len(stored) < SaltLength {
		return stored
	}
	return stored[:SaltLength]
}
