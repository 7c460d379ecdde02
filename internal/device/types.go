package device

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"strings"
)

// TransportKind identifies how a device was discovered.
type TransportKind string

// Transport kinds.
const (
	TransportUSB     TransportKind = "usb"
	TransportNetwork TransportKind = "network"
)

// Transport is the channel a device was discovered on. Addr is only
// meaningful for network transports and may be the zero value when the
// discovery layer does not report an address.
type Transport struct {
	Kind TransportKind  `json:"kind"`
	Addr netip.AddrPort `json:"addr,omitzero"`
}

// USB returns the wired transport.
func USB() Transport {
	return Transport{Kind: TransportUSB}
}

// Network returns a network transport for addr.
func Network(addr netip.AddrPort) Transport {
	return Transport{Kind: TransportNetwork, Addr: addr}
}

// IsNetwork reports whether the device was discovered over the network.
func (t Transport) IsNetwork() bool {
	return t.Kind == TransportNetwork
}

// String returns "usb", "network" or "network(ip:port)".
func (t Transport) String() string {
	if t.Kind == TransportNetwork && t.Addr.IsValid() {
		return fmt.Sprintf("network(%s)", t.Addr)
	}
	return string(t.Kind)
}

// Descriptor identifies one reachable device.
//
// The identity is fixed at construction; there is no way to change it on an
// existing Descriptor. WithDisplayName returns a modified copy.
type Descriptor struct {
	identity    string
	transport   Transport
	displayName string
}

// NewDescriptor creates a descriptor for a discovered device.
// Returns ErrInvalidIdentity if identity is blank.
func NewDescriptor(identity string, transport Transport) (Descriptor, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return Descriptor{}, ErrInvalidIdentity
	}
	if transport.Kind != TransportUSB && transport.Kind != TransportNetwork {
		return Descriptor{}, fmt.Errorf("%w: unknown transport %q", ErrInvalidIdentity, transport.Kind)
	}
	return Descriptor{identity: identity, transport: transport}, nil
}

// MustDescriptor is NewDescriptor for identities known to be valid.
// It panics on error.
func MustDescriptor(identity string, transport Transport) Descriptor {
	d, err := NewDescriptor(identity, transport)
	if err != nil {
		panic(err)
	}
	return d
}

// Identity returns the device's unique identifier (UDID).
func (d Descriptor) Identity() string { return d.identity }

// Transport returns how the device was discovered.
func (d Descriptor) Transport() Transport { return d.transport }

// DisplayName returns the human-readable name, or "" if it is unknown.
func (d Descriptor) DisplayName() string { return d.displayName }

// WithDisplayName returns a copy of d carrying name.
func (d Descriptor) WithDisplayName(name string) Descriptor {
	d.displayName = strings.TrimSpace(name)
	return d
}

// Label returns the operator-facing menu label, for example
// "[USB] Jane's iPhone - 00008030-001A2B3C". Unnamed devices show only
// their identity.
func (d Descriptor) Label() string {
	tag := "[USB]"
	if d.transport.IsNetwork() {
		tag = "[WiFi]"
	}
	if d.displayName == "" {
		return tag + " " + d.identity
	}
	return fmt.Sprintf("%s %s - %s", tag, d.displayName, d.identity)
}

// String implements fmt.Stringer.
func (d Descriptor) String() string {
	return d.identity + "@" + d.transport.String()
}

// descriptorJSON is the wire form used by the HTTP API.
type descriptorJSON struct {
	Identity    string    `json:"identity"`
	Transport   Transport `json:"transport"`
	DisplayName string    `json:"display_name,omitempty"`
	Label       string    `json:"label"`
}

// MarshalJSON implements json.Marshaler.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(descriptorJSON{
		Identity:    d.identity,
		Transport:   d.transport,
		DisplayName: d.displayName,
		Label:       d.Label(),
	})
}
