package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// requestMeasurement is the measurement holding one point per handled request.
const requestMeasurement = "relay_requests"

// WriteRequestMetric records one handled request.
//
// The write is non-blocking; points are batched and sent asynchronously.
//
// Parameters:
//   - action: Request action (publish, request, get_salt, ...), stored as a tag
//   - outcome: Result (ok, auth_failed, timeout, ...), stored as a tag
//   - duration: Time taken to produce the response
//   - at: When the request finished
//
// Example:
//
//	client.WriteRequestMetric("request", "timeout", 15*time.Second, time.Now())
func (c *Client) WriteRequestMetric(action, outcome string, duration time.Duration, at time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		requestMeasurement,
		map[string]string{
			"action":  action,
			"outcome": outcome,
		},
		map[string]interface{}{
			"duration_ms": float64(duration.Microseconds()) / 1000,
		},
		at,
	)

	c.writeAPI.WritePoint(point)
}
