package heartbeat

import (
	"fmt"
	"net/netip"
	"strings"
)

// DefaultPort is the lockdown service port devices listen on over WiFi.
const DefaultPort uint16 = 62078

// ParseAddress parses "ip" or "ip:port". IPv6 addresses with a port use the
// bracketed form "[fe80::1]:62078". A missing port becomes defaultPort.
//
// Returns ErrInvalidAddress for anything else, including host names.
func ParseAddress(s string, defaultPort uint16) (netip.AddrPort, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.AddrPort{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if defaultPort == 0 {
		defaultPort = DefaultPort
	}

	if addr, err := netip.ParseAddr(s); err == nil {
		if addr.Zone() != "" {
			return netip.AddrPort{}, fmt.Errorf("%w: %q: zoned addresses are not supported", ErrInvalidAddress, s)
		}
		return netip.AddrPortFrom(addr.Unmap(), defaultPort), nil
	}

	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if ap.Port() == 0 {
		return netip.AddrPort{}, fmt.Errorf("%w: %q: port 0", ErrInvalidAddress, s)
	}
	if ap.Addr().Zone() != "" {
		return netip.AddrPort{}, fmt.Errorf("%w: %q: zoned addresses are not supported", ErrInvalidAddress, s)
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), nil
}
