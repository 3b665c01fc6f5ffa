package mqtt

import "strings"

// Reply topic convention.
//
// A client asking a device for data publishes to <device>/in/params; the
// device answers on <device>/out/info.
const (
	// RequestParamsSuffix marks a topic whose publish expects a reply.
	RequestParamsSuffix = "/in/params"

	// ReplyInfoSuffix replaces RequestParamsSuffix to form the reply topic.
	ReplyInfoSuffix = "/out/info"
)

// ReplyTopic returns the companion reply topic for a request topic.
//
// Example: /dev1/in/params -> /dev1/out/info
//
// Returns:
//   - string: The reply topic, or "" if none
//   - bool: Whether the request topic expects a reply
func ReplyTopic(topic string) (string, bool) {
	base, ok := strings.CutSuffix(topic, RequestParamsSuffix)
	if !ok {
		return "", false
	}
	return base + ReplyInfoSuffix, true
}
