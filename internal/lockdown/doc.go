// Package lockdown sequences protocol sessions against a single device.
//
// A Session is opened for one purpose, used for a handful of calls and
// closed. Its lifecycle is:
//
//	Opening → Ready → Closed
//	Opening → Failed         (handshake error, reported as ErrSessionOpenFailed)
//	Ready   → Failed         (mid-session protocol error)
//
// Operations are only valid in Ready. A device-side refusal the operator can
// fix (a missing passcode, an unanswered trust dialog) is reported as a
// *PreconditionError and leaves the session usable; anything else fails the
// session.
//
// Pairing is only attempted for devices discovered over USB. A request for a
// network-discovered device is rejected with ErrWrongTransportForPairing
// before the connection is used.
//
// The wire protocol itself lives behind the Transport and Conn interfaces.
//
// # Usage
//
//	opener := lockdown.NewOpener(transport)
//	opener.SetLogger(log)
//
//	err := opener.WithSession(ctx, d, lockdown.PurposeEnableWiFi, func(s *lockdown.Session) error {
//	    return s.SetValue(ctx, "com.apple.mobile.wireless_lockdown", "EnableWifiDebugging", true)
//	})
package lockdown
