package relay

import "time"

// RequestMetricWriter stores one metric point per request.
// Implemented by *influxdb.Client.
type RequestMetricWriter interface {
	WriteRequestMetric(action, outcome string, duration time.Duration, at time.Time)
}

// MetricsSink forwards events to a RequestMetricWriter.
type MetricsSink struct {
	writer RequestMetricWriter
}

// NewMetricsSink creates a MetricsSink around writer.
func NewMetricsSink(writer RequestMetricWriter) *MetricsSink {
	return &MetricsSink{writer: writer}
}

// Record implements EventSink.
func (m *MetricsSink) Record(ev Event) {
	m.writer.WriteRequestMetric(ev.Action, ev.Outcome, ev.Duration, ev.At)
}
