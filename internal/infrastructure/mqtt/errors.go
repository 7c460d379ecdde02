package mqtt

import "errors"

var (
	// ErrNotConnected is returned when an event or status message is
	// published after the broker connection was lost or closed.
	ErrNotConnected = errors.New("mqtt: not connected to broker")

	// ErrConnectionFailed means the broker could not be reached at startup.
	// pairgen then runs without event publishing.
	ErrConnectionFailed = errors.New("mqtt: broker unreachable")

	// ErrPublishFailed wraps encoding, size and broker failures when
	// publishing an operation event.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrInvalidQoS is returned for a QoS outside 0-2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
