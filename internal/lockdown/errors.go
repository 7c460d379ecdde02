package lockdown

import (
	"errors"
	"fmt"
)

// Domain errors for the lockdown package.
//
// Every failure is terminal for the operation that hit it; nothing here is
// retried.
var (
	// ErrSessionOpenFailed is returned when the device cannot be reached on
	// the descriptor's transport.
	ErrSessionOpenFailed = errors.New("lockdown: session open failed")

	// ErrAttributeUnavailable is returned when the device declines to answer
	// a query.
	ErrAttributeUnavailable = errors.New("lockdown: attribute unavailable")

	// ErrProtocol is returned for mid-session failures with no
	// operator-actionable remedy. The session moves to StateFailed.
	ErrProtocol = errors.New("lockdown: protocol error")

	// ErrPreconditionUnmet is matched by *PreconditionError.
	ErrPreconditionUnmet = errors.New("lockdown: precondition unmet")

	// ErrWrongTransportForPairing is returned when pairing is requested for a
	// device discovered over the network.
	ErrWrongTransportForPairing = errors.New("lockdown: pairing requires a wired transport")

	// ErrDeviceRejected is reported by transports when the device refused a
	// request without saying why. Sessions treat it as a protocol error.
	ErrDeviceRejected = errors.New("lockdown: device rejected request")

	// ErrSessionNotReady is returned when an operation is invoked on a session
	// that is not in StateReady.
	ErrSessionNotReady = errors.New("lockdown: session not ready")
)

// PreconditionError reports a device-side refusal the operator can fix,
// such as "a passcode must be set". Description is shown verbatim.
type PreconditionError struct {
	Description string
}

// NewPreconditionError creates a precondition error with description.
func NewPreconditionError(description string) *PreconditionError {
	return &PreconditionError{Description: description}
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition unmet: %s", e.Description)
}

// Is makes errors.Is(err, ErrPreconditionUnmet) match.
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPreconditionUnmet
}
