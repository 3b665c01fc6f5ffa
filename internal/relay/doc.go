// Package relay turns one client request into one response.
//
// A request is a single JSON object in one of three shapes:
//
//	{"topic", "message", "user", "password"}   publish, with an optional reply wait
//	{"message": "/get_salt", "user"}           salt query
//	{"message": "/check_auth", "user", "password"}  credential check
//
// The Dispatcher validates the shape, authenticates where needed, forwards
// publishes to the broker and maps every outcome, including failures, to a
// fixed response text. Nothing it does can fail the connection: errors from
// the broker, the verifier or a panic all end up as a response.
//
// Publishes to a topic ending in /in/params are answered with the device's
// reply from the matching /out/info topic, or a timeout text if none
// arrives before the reply deadline.
package relay
