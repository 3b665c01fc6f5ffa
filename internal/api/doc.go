// Package api provides the optional HTTP status API for the relay.
//
// It exposes read-only endpoints for monitoring the relay:
//
//	GET /api/v1/health   liveness plus database/InfluxDB checks
//	GET /api/v1/metrics  runtime, request counters and database pool stats
//	GET /api/v1/events   paginated audit trail of handled requests
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
