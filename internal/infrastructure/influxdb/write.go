package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// measurementOperations is the measurement every operation metric is written to.
const measurementOperations = "pairgen_operations"

// OperationMetric is one finished device operation.
type OperationMetric struct {
	Operation string
	Identity  string
	Transport string
	Source    string
	Success   bool
	ErrorKind string
	Verified  bool
	Duration  time.Duration
	At        time.Time
}

// WriteOperationMetric records m.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Failures surface through the SetOnError callback. Calls on a closed
// client are dropped.
func (c *Client) WriteOperationMetric(m OperationMetric) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(operationPoint(m))
}

// operationPoint builds the point for m. Tags are the low-cardinality
// dimensions queried by; everything else is a field.
func operationPoint(m OperationMetric) *write.Point {
	at := m.At
	if at.IsZero() {
		at = time.Now()
	}

	tags := map[string]string{
		"operation": m.Operation,
		"identity":  m.Identity,
		"transport": m.Transport,
		"success":   boolTag(m.Success),
	}
	if m.Source != "" {
		tags["source"] = m.Source
	}

	fields := map[string]interface{}{
		"duration_ms": m.Duration.Milliseconds(),
		"verified":    m.Verified,
	}
	if m.ErrorKind != "" {
		fields["error_kind"] = m.ErrorKind
	}

	return write.NewPoint(measurementOperations, tags, fields, at)
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
