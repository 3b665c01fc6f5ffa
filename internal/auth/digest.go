package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters shared by the relay and its clients.
const (
	pbkdf2Iterations = 100000 // iterations
	pbkdf2KeyLen     = 32     // derived key length in bytes
	saltBytes        = 32     // random salt length; hex-encoded to SaltLength characters
)

// DeriveDigest computes the credential digest a client presents for a
// password and the salt returned by a salt query.
//
// The digest is the salt followed by the hex PBKDF2-HMAC-SHA256 key, so a
// stored digest begins with the salt it was derived from.
func DeriveDigest(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	return salt + hex.EncodeToString(key)
}

// NewDigest creates a stored digest for a users file entry using a fresh
// random salt.
func NewDigest(password string) (string, error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	return DeriveDigest(password, hex.EncodeToString(raw)), nil
}
