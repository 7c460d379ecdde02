// Package influxdb records pairgen operation metrics in InfluxDB.
//
// Each finished operation becomes one point in the "pairgen_operations"
// measurement, tagged by operation, identity, transport, success and
// source, with duration_ms, verified and error_kind fields.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteOperationMetric(influxdb.OperationMetric{
//	    Operation: "export",
//	    Identity:  "00008101-000A",
//	    Transport: "usb",
//	    Success:   true,
//	    Duration:  120 * time.Millisecond,
//	})
//
// # Error Handling
//
// Writes are non-blocking. A batch the server refuses reaches the
// SetOnError callback wrapped in ErrMetricsRejected; pairgen logs it and
// carries on, since metrics never fail an operation. Close sends queued
// points before the CLI exits.
package influxdb
