package heartbeat

import "errors"

// ErrInvalidAddress is returned when an operator-supplied address is not an
// IP address with an optional port.
var ErrInvalidAddress = errors.New("heartbeat: invalid address")
