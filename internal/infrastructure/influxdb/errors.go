package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when operation metrics are
	// switched off in config.
	ErrDisabled = errors.New("influxdb: operation metrics disabled")

	// ErrConnectionFailed means the metrics server could not be reached
	// at startup.
	ErrConnectionFailed = errors.New("influxdb: metrics server unreachable")

	// ErrNotConnected is returned by HealthCheck after Close.
	ErrNotConnected = errors.New("influxdb: metrics client closed")

	// ErrMetricsRejected wraps a batch of operation metrics the server
	// refused. It reaches callers only through SetOnError.
	ErrMetricsRejected = errors.New("influxdb: operation metrics rejected")
)
