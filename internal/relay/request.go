package relay

import (
	"encoding/json"
	"fmt"
)

// Control messages recognised in the message field.
const (
	MessageGetSalt   = "/get_salt"
	MessageCheckAuth = "/check_auth"
)

// Kind identifies which of the request shapes a request matched.
type Kind int

// Request kinds.
const (
	KindPublish Kind = iota + 1
	KindSalt
	KindCheckAuth
)

// String returns the kind name used in logs and events.
func (k Kind) String() string {
	switch k {
	case KindPublish:
		return "publish"
	case KindSalt:
		return "get_salt"
	case KindCheckAuth:
		return "check_auth"
	default:
		return "unknown"
	}
}

// Request is a validated client request.
type Request struct {
	Kind     Kind
	Topic    string
	Message  string
	User     string
	Password string
}

// ParseRequest decodes and classifies a raw request body.
//
// The body must be a JSON object whose key set is exactly one of the
// recognised shapes, in any order, with every value a JSON string. Publish
// requests must name a non-empty topic.
//
// Returns:
//   - *Request: The classified request
//   - error: ErrMalformedJSON if the body is not a JSON object,
//     ErrUnknownShape if it is an object of the wrong shape
func ParseRequest(raw []byte) (*Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJSON, err)
	}
	if fields == nil {
		return nil, ErrMalformedJSON
	}

	values := make(map[string]string, len(fields))
	for key, value := range fields {
		// Unmarshal leaves a string untouched on null, so decode via a pointer.
		var s *string
		if err := json.Unmarshal(value, &s); err != nil || s == nil {
			return nil, fmt.Errorf("%w: field %q is not a string", ErrUnknownShape, key)
		}
		values[key] = *s
	}

	req := &Request{
		Topic:    values["topic"],
		Message:  values["message"],
		User:     values["user"],
		Password: values["password"],
	}

	switch {
	case hasExactly(values, "topic", "message", "user", "password"):
		if req.Topic == "" {
			return nil, fmt.Errorf("%w: empty topic", ErrUnknownShape)
		}
		req.Kind = KindPublish
	case hasExactly(values, "message", "user") && req.Message == MessageGetSalt:
		req.Kind = KindSalt
	case hasExactly(values, "message", "user", "password") && req.Message == MessageCheckAuth:
		req.Kind = KindCheckAuth
	default:
		return nil, ErrUnknownShape
	}

	return req, nil
}

// hasExactly reports whether values has precisely the given keys.
func hasExactly(values map[string]string, keys ...string) bool {
	if len(values) != len(keys) {
		return false
	}
	for _, k := range keys {
		if _, ok := values[k]; !ok {
			return false
		}
	}
	return true
}
