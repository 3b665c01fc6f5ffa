package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Store maps usernames to stored credential digests.
//
// A Store is built once and never modified, so it is safe for concurrent
// reads without locking.
type Store struct {
	digests map[string]string
}

// NewStore creates a Store from a username → digest map.
// The map is copied; later changes to users are not visible.
func NewStore(users map[string]string) *Store {
	digests := make(map[string]string, len(users))
	for user, digest := range users {
		digests[user] = digest
	}
	return &Store{digests: digests}
}

// LoadStore reads the registered users from a JSON object file.
//
// Values are taken as text: strings verbatim, numbers in their literal
// form and booleans as "true"/"false". Nested objects, arrays and null
// are rejected.
//
// Parameters:
//   - path: Path to the users JSON file
//
// Returns:
//   - *Store: Loaded credential store
//   - error: Wrapping ErrUsersFile or ErrInvalidUsersFile
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsersFile, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidUsersFile, path, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s: top level must be an object", ErrInvalidUsersFile, path)
	}

	digests := make(map[string]string, len(raw))
	for user, value := range raw {
		switch v := value.(type) {
		case string:
			digests[user] = v
		case json.Number:
			digests[user] = v.String()
		case bool:
			digests[user] = strconv.FormatBool(v)
		default:
			return nil, fmt.Errorf("%w: %s: user %q has a non-scalar value", ErrInvalidUsersFile, path, user)
		}
	}

	return &Store{digests: digests}, nil
}

// Digest returns the stored digest for user.
// The second result is false for unknown users and for empty digests.
func (s *Store) Digest(user string) (string, bool) {
	digest, ok := s.digests[user]
	if !ok || digest == "" {
		return "", false
	}
	return digest, true
}

// Len returns the number of registered users.
func (s *Store) Len() int {
	return len(s.digests)
}
