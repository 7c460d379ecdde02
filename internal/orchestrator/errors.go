package orchestrator

import (
	"errors"

	"github.com/nerrad567/pairgen/internal/device"
	"github.com/nerrad567/pairgen/internal/heartbeat"
	"github.com/nerrad567/pairgen/internal/lockdown"
	"github.com/nerrad567/pairgen/internal/pairing"
)

// Domain errors for the orchestrator package.
var (
	// ErrUnknownOperation is returned by ParseOperation for unrecognised names.
	ErrUnknownOperation = errors.New("orchestrator: unknown operation")

	// ErrUnreachable is returned by TestWiFiSync when the heartbeat fails.
	ErrUnreachable = errors.New("orchestrator: device unreachable over network")
)

// passcodeRequired is shown when the device refuses to enable WiFi sync.
const passcodeRequired = "You need to set a passcode on your device to enable WiFi sync"

// errorKinds maps sentinels to stable kind names, most specific first.
var errorKinds = []struct {
	err  error
	kind string
}{
	{device.ErrEnumerationUnavailable, "EnumerationUnavailable"},
	{device.ErrNoDevicesFound, "NoDevicesFound"},
	{device.ErrDeviceNotFound, "DeviceNotFound"},
	{lockdown.ErrWrongTransportForPairing, "WrongTransportForPairing"},
	{lockdown.ErrPreconditionUnmet, "PreconditionUnmet"},
	{lockdown.ErrSessionOpenFailed, "SessionOpenFailed"},
	{lockdown.ErrAttributeUnavailable, "AttributeUnavailable"},
	{lockdown.ErrProtocol, "ProtocolError"},
	{lockdown.ErrSessionNotReady, "SessionNotReady"},
	{pairing.ErrPairingRecordNotFound, "PairingRecordNotFound"},
	{pairing.ErrDestinationNotSelected, "DestinationNotSelected"},
	{pairing.ErrDestinationUnwritable, "DestinationUnwritable"},
	{pairing.ErrIdentityMismatch, "IdentityMismatch"},
	{heartbeat.ErrInvalidAddress, "InvalidAddress"},
	{ErrUnreachable, "Unreachable"},
	{ErrUnknownOperation, "UnknownOperation"},
}

// ErrorKind returns the stable name of err's failure kind, "" for nil and
// "Internal" for errors outside the taxonomy.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}
