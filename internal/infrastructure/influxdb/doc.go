// Package influxdb records relay request metrics in InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library: one point per handled
// request in the relay_requests measurement, tagged by action and outcome,
// with the response time as the duration_ms field.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteRequestMetric("publish", "ok", 12*time.Millisecond, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched according to batch_size and flush_interval; asynchronous write
// errors are delivered to the callback set with SetOnError.
package influxdb
