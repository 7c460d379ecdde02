package device

import (
	"encoding/json"
	"errors"
	"net/netip"
	"strings"
	"testing"
)

func TestNewDescriptor(t *testing.T) {
	tests := []struct {
		name      string
		identity  string
		transport Transport
		wantErr   bool
	}{
		{name: "usb", identity: "00008030-001A2B3C", transport: USB()},
		{name: "network", identity: "abc", transport: Network(netip.MustParseAddrPort("192.168.1.20:62078"))},
		{name: "network without address", identity: "abc", transport: Network(netip.AddrPort{})},
		{name: "blank identity", identity: "   ", transport: USB(), wantErr: true},
		{name: "unknown transport", identity: "abc", transport: Transport{Kind: "bluetooth"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDescriptor(tt.identity, tt.transport)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidIdentity) {
					t.Fatalf("NewDescriptor() error = %v, want ErrInvalidIdentity", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewDescriptor() error = %v", err)
			}
			if d.Identity() != strings.TrimSpace(tt.identity) {
				t.Errorf("Identity() = %q, want %q", d.Identity(), tt.identity)
			}
			if d.Transport() != tt.transport {
				t.Errorf("Transport() = %v, want %v", d.Transport(), tt.transport)
			}
		})
	}
}

func TestWithDisplayName_ReturnsCopy(t *testing.T) {
	orig := MustDescriptor("udid-1", USB())
	named := orig.WithDisplayName("  Jane's iPhone ")

	if orig.DisplayName() != "" {
		t.Errorf("original DisplayName() = %q, want empty", orig.DisplayName())
	}
	if named.DisplayName() != "Jane's iPhone" {
		t.Errorf("DisplayName() = %q, want %q", named.DisplayName(), "Jane's iPhone")
	}
	if named.Identity() != orig.Identity() {
		t.Errorf("Identity() changed: %q -> %q", orig.Identity(), named.Identity())
	}
}

func TestLabel(t *testing.T) {
	wifi := Network(netip.MustParseAddrPort("10.0.0.5:62078"))

	tests := []struct {
		name string
		d    Descriptor
		want string
	}{
		{"usb named", MustDescriptor("u1", USB()).WithDisplayName("Phone"), "[USB] Phone - u1"},
		{"usb unnamed", MustDescriptor("u1", USB()), "[USB] u1"},
		{"network named", MustDescriptor("u2", wifi).WithDisplayName("Pad"), "[WiFi] Pad - u2"},
		{"network unnamed", MustDescriptor("u2", wifi), "[WiFi] u2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransportString(t *testing.T) {
	if got := USB().String(); got != "usb" {
		t.Errorf("USB().String() = %q", got)
	}
	if got := Network(netip.AddrPort{}).String(); got != "network" {
		t.Errorf("Network(zero).String() = %q", got)
	}
	if got := Network(netip.MustParseAddrPort("10.0.0.5:62078")).String(); got != "network(10.0.0.5:62078)" {
		t.Errorf("Network(addr).String() = %q", got)
	}
}

func TestDescriptorMarshalJSON(t *testing.T) {
	d := MustDescriptor("u1", USB()).WithDisplayName("Phone")

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["identity"] != "u1" {
		t.Errorf("identity = %v, want u1", got["identity"])
	}
	if got["label"] != "[USB] Phone - u1" {
		t.Errorf("label = %v", got["label"])
	}
	transport, ok := got["transport"].(map[string]any)
	if !ok || transport["kind"] != "usb" {
		t.Errorf("transport = %v", got["transport"])
	}
}
