package heartbeat

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/nerrad567/pairgen/internal/device"
	"github.com/nerrad567/pairgen/internal/lockdown"
)

// mockHeartbeater records heartbeat calls.
type mockHeartbeater struct {
	err         error
	calls       int
	lastAddr    netip.AddrPort
	lastPurpose lockdown.Purpose
	hasDeadline bool
}

func (m *mockHeartbeater) Heartbeat(ctx context.Context, _ string, addr netip.AddrPort, purpose lockdown.Purpose) error {
	m.calls++
	m.lastAddr = addr
	m.lastPurpose = purpose
	_, m.hasDeadline = ctx.Deadline()
	return m.err
}

func TestValidate_NetworkShortCircuit(t *testing.T) {
	hb := &mockHeartbeater{err: errors.New("must not be called")}
	v := NewValidator(hb, time.Second)
	d := device.MustDescriptor("d1", device.Network(netip.MustParseAddrPort("10.0.0.9:62078")))

	out := v.Validate(context.Background(), d, netip.AddrPort{})
	if out.Status != StatusReachable {
		t.Errorf("Status = %v, want reachable", out.Status)
	}
	if out.Verified {
		t.Error("Verified = true for assumed reachability")
	}
	if hb.calls != 0 {
		t.Errorf("Heartbeat called %d times, want 0", hb.calls)
	}
}

func TestValidate_USB(t *testing.T) {
	addr := netip.MustParseAddrPort("192.168.1.20:62078")
	d := device.MustDescriptor("d1", device.USB())

	tests := []struct {
		name         string
		hbErr        error
		addr         netip.AddrPort
		wantStatus   Status
		wantVerified bool
		wantCalls    int
	}{
		{name: "answers", addr: addr, wantStatus: StatusReachable, wantVerified: true, wantCalls: 1},
		{name: "off network", addr: addr, hbErr: errors.New("connection refused"), wantStatus: StatusUnreachable, wantCalls: 1},
		{name: "no address", wantStatus: StatusUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hb := &mockHeartbeater{err: tt.hbErr}
			v := NewValidator(hb, time.Second)

			out := v.Validate(context.Background(), d, tt.addr)
			if out.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", out.Status, tt.wantStatus)
			}
			if out.Verified != tt.wantVerified {
				t.Errorf("Verified = %v, want %v", out.Verified, tt.wantVerified)
			}
			if hb.calls != tt.wantCalls {
				t.Errorf("Heartbeat called %d times, want %d", hb.calls, tt.wantCalls)
			}
			if tt.wantStatus == StatusUnreachable && out.Reason == "" {
				t.Error("Reason empty for unreachable outcome")
			}
			if tt.wantCalls > 0 {
				if hb.lastAddr != tt.addr {
					t.Errorf("addr = %v, want %v", hb.lastAddr, tt.addr)
				}
				if hb.lastPurpose != lockdown.PurposeHeartbeat {
					t.Errorf("purpose = %q, want %q", hb.lastPurpose, lockdown.PurposeHeartbeat)
				}
				if !hb.hasDeadline {
					t.Error("heartbeat context has no deadline")
				}
			}
		})
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "192.168.1.20", want: "192.168.1.20:62078"},
		{input: " 192.168.1.20:1234 ", want: "192.168.1.20:1234"},
		{input: "fe80::1", want: "[fe80::1]:62078"},
		{input: "[2001:db8::5]:9000", want: "[2001:db8::5]:9000"},
		{input: "::ffff:10.0.0.1", want: "10.0.0.1:62078"},
		{input: "", wantErr: true},
		{input: "iphone.local", wantErr: true},
		{input: "192.168.1", wantErr: true},
		{input: "192.168.1.20:", wantErr: true},
		{input: "192.168.1.20:0", wantErr: true},
		{input: "192.168.1.20:70000", wantErr: true},
		{input: "fe80::1%en0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAddress(tt.input, DefaultPort)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAddress) {
					t.Fatalf("ParseAddress(%q) error = %v, want ErrInvalidAddress", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAddress(%q) error = %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseAddress(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseAddress_CustomDefaultPort(t *testing.T) {
	got, err := ParseAddress("10.0.0.1", 69)
	if err != nil {
		t.Fatalf("ParseAddress() error = %v", err)
	}
	if got.Port() != 69 {
		t.Errorf("Port() = %d, want 69", got.Port())
	}
}
