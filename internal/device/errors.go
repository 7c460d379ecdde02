package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrNoDevicesFound) {
//	    // nothing attached
//	}
var (
	// ErrEnumerationUnavailable is returned when the discovery service
	// (usbmuxd) cannot be reached. The remedy is external; it is never retried.
	ErrEnumerationUnavailable = errors.New("device: enumeration unavailable")

	// ErrNoDevicesFound is returned when discovery works but reports no devices.
	ErrNoDevicesFound = errors.New("device: no devices found")

	// ErrDeviceNotFound is returned when an identity is not among the
	// currently reachable devices.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidIdentity is returned when a descriptor is built without an identity.
	ErrInvalidIdentity = errors.New("device: invalid identity")
)
