package relay

// Response texts written back to clients.
//
// Failure texts carry an "ERROR:" prefix so a device reply can never be
// mistaken for one of them unless the device deliberately imitates it.
const (
	ResponseOK            = "OK"
	ResponseAuthFailed    = "unknown username or password"
	ResponseParseError    = "ERROR: request is not valid JSON"
	ResponseFormatError   = "ERROR: request does not contain the required fields"
	ResponsePublishFailed = "ERROR: failed to publish message"
	ResponseReplyTimeout  = "ERROR: timed out waiting for device reply"
	ResponseInternalError = "ERROR: internal error"
)
