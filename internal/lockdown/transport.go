package lockdown

import (
	"context"
	"net/netip"

	"github.com/nerrad567/pairgen/internal/device"
)

// Purpose tags a session with the caller's intent. The transport uses it
// for diagnostics only.
type Purpose string

// Purposes used by pairgen.
const (
	PurposeNameLookup    Purpose = "pairing_gen"
	PurposeHeartbeat     Purpose = "pairing_gen_test"
	PurposeEnableWiFi    Purpose = "pairing_file_wifi_on"
	PurposePairingRecord Purpose = "pairing_file_gen"
)

// Transport is the device-communication layer pairgen drives.
//
// Implementations own discovery, session framing and the pairing handshake;
// this package only sequences calls against them.
type Transport interface {
	// Enumerate lists reachable devices in discovery order.
	Enumerate(ctx context.Context) ([]device.Descriptor, error)

	// OpenSession connects to d for purpose.
	OpenSession(ctx context.Context, d device.Descriptor, purpose Purpose) (Conn, error)

	// Heartbeat performs a liveness check against addr using the host's
	// existing pairing record for identity.
	Heartbeat(ctx context.Context, identity string, addr netip.AddrPort, purpose Purpose) error

	// ReadPairingRecord returns the raw pairing record the host holds for
	// identity.
	ReadPairingRecord(ctx context.Context, identity string) ([]byte, error)
}

// Conn is an open protocol connection to one device.
//
// Implementations report a device-side refusal with a remedy as
// *PreconditionError and a declined query as ErrAttributeUnavailable.
type Conn interface {
	DeviceName(ctx context.Context) (string, error)
	SetValue(ctx context.Context, domain, key string, value any) error
	Pair(ctx context.Context) ([]byte, error)
	Close() error
}
