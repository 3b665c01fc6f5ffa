// Package auth verifies relay client credentials.
//
// Registered users live in a JSON file mapping each username to a stored
// digest. The digest is a 64-character hex salt followed by the hex
// PBKDF2-HMAC-SHA256 key of the password under that salt:
//
//	digest = salt + hex(PBKDF2(password, salt, 100000, 32))
//
// A client asks for the salt (SaltOf), derives the digest itself with
// DeriveDigest and presents it; Authenticate compares it in constant time.
// The salt is a prefix of the stored digest and is disclosed to anyone who
// asks for a known username.
//
// The Store is loaded once at startup and never modified afterwards.
package auth
