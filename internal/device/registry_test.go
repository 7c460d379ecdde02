package device

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockEnumerator returns a fixed device list.
type mockEnumerator struct {
	devices []Descriptor
	err     error
	calls   int
}

func (m *mockEnumerator) Enumerate(_ context.Context) ([]Descriptor, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Descriptor, len(m.devices))
	copy(out, m.devices)
	return out, nil
}

// mockResolver resolves names from a map with optional random latency.
type mockResolver struct {
	names   map[string]string
	jitter  bool
	mu      sync.Mutex
	calls   []string
	running atomic.Int32
	peak    atomic.Int32
}

func (m *mockResolver) ResolveName(_ context.Context, d Descriptor) (string, error) {
	n := m.running.Add(1)
	defer m.running.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, d.Identity())
	m.mu.Unlock()

	if m.jitter {
		time.Sleep(time.Duration(rand.IntN(5)) * time.Millisecond)
	}

	name, ok := m.names[d.Identity()]
	if !ok {
		return "", errors.New("device declined")
	}
	return name, nil
}

func testDevices(n int) []Descriptor {
	devices := make([]Descriptor, n)
	for i := range devices {
		devices[i] = MustDescriptor(fmt.Sprintf("udid-%02d", i), USB())
	}
	return devices
}

func TestListDevices_ResolvesNames(t *testing.T) {
	enum := &mockEnumerator{devices: []Descriptor{
		MustDescriptor("a", USB()),
		MustDescriptor("b", Network(netip.MustParseAddrPort("10.0.0.2:62078"))),
	}}
	names := &mockResolver{names: map[string]string{"a": "Alpha", "b": "Bravo"}}

	r := NewRegistry(enum, names)
	devices, err := r.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("len(devices) = %d, want 2", len(devices))
	}
	if devices[0].DisplayName() != "Alpha" || devices[1].DisplayName() != "Bravo" {
		t.Errorf("names = %q, %q", devices[0].DisplayName(), devices[1].DisplayName())
	}
}

func TestListDevices_NameFailureIsAbsorbed(t *testing.T) {
	enum := &mockEnumerator{devices: testDevices(3)}
	names := &mockResolver{names: map[string]string{"udid-00": "Zero", "udid-02": "Two"}}

	r := NewRegistry(enum, names)
	devices, err := r.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("len(devices) = %d, want 3", len(devices))
	}
	if devices[1].DisplayName() != "" {
		t.Errorf("devices[1].DisplayName() = %q, want empty", devices[1].DisplayName())
	}
	if devices[0].DisplayName() != "Zero" || devices[2].DisplayName() != "Two" {
		t.Errorf("resolved names wrong: %q, %q", devices[0].DisplayName(), devices[2].DisplayName())
	}
}

func TestListDevices_Errors(t *testing.T) {
	tests := []struct {
		name    string
		enum    *mockEnumerator
		wantErr error
	}{
		{
			name:    "discovery unavailable",
			enum:    &mockEnumerator{err: errors.New("usbmuxd not running")},
			wantErr: ErrEnumerationUnavailable,
		},
		{
			name:    "nothing attached",
			enum:    &mockEnumerator{},
			wantErr: ErrNoDevicesFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(tt.enum, nil)
			devices, err := r.ListDevices(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ListDevices() error = %v, want %v", err, tt.wantErr)
			}
			if devices != nil {
				t.Errorf("devices = %v, want nil", devices)
			}
			if tt.enum.calls != 1 {
				t.Errorf("Enumerate called %d times, want 1", tt.enum.calls)
			}
		})
	}
}

func TestListDevices_StableOrder(t *testing.T) {
	devices := testDevices(20)
	names := map[string]string{}
	for _, d := range devices {
		names[d.Identity()] = "name-" + d.Identity()
	}

	r := NewRegistry(&mockEnumerator{devices: devices}, &mockResolver{names: names, jitter: true})
	r.SetConcurrency(8)

	first, err := r.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("first ListDevices() error = %v", err)
	}
	second, err := r.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("second ListDevices() error = %v", err)
	}

	for i := range devices {
		if first[i].Identity() != devices[i].Identity() {
			t.Errorf("first[%d] = %s, want %s", i, first[i].Identity(), devices[i].Identity())
		}
		if second[i].Identity() != first[i].Identity() {
			t.Errorf("second[%d] = %s, want %s", i, second[i].Identity(), first[i].Identity())
		}
		if first[i].DisplayName() != "name-"+devices[i].Identity() {
			t.Errorf("first[%d].DisplayName() = %q", i, first[i].DisplayName())
		}
	}
}

func TestListDevices_BoundedConcurrency(t *testing.T) {
	devices := testDevices(12)
	resolver := &mockResolver{names: map[string]string{}, jitter: true}

	r := NewRegistry(&mockEnumerator{devices: devices}, resolver)
	r.SetConcurrency(3)

	if _, err := r.ListDevices(context.Background()); err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if peak := resolver.peak.Load(); peak > 3 {
		t.Errorf("peak concurrent lookups = %d, want <= 3", peak)
	}
	if len(resolver.calls) != len(devices) {
		t.Errorf("lookups = %d, want %d", len(resolver.calls), len(devices))
	}
}

func TestLookup(t *testing.T) {
	wifi := Network(netip.MustParseAddrPort("10.0.0.2:62078"))
	enum := &mockEnumerator{devices: []Descriptor{
		MustDescriptor("a", USB()),
		MustDescriptor("a", wifi),
		MustDescriptor("b", wifi),
	}}
	r := NewRegistry(enum, nil)

	d, err := r.Lookup(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lookup(a) error = %v", err)
	}
	if d.Transport().IsNetwork() {
		t.Error("Lookup(a) returned network descriptor, want first discovered (USB)")
	}

	if _, err := r.Lookup(context.Background(), "missing"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Lookup(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestCached(t *testing.T) {
	enum := &mockEnumerator{devices: testDevices(2)}
	r := NewRegistry(enum, nil)

	if got := r.Cached(); len(got) != 0 {
		t.Fatalf("Cached() before enumeration = %v, want empty", got)
	}

	if _, err := r.ListDevices(context.Background()); err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	cached := r.Cached()
	if len(cached) != 2 {
		t.Fatalf("len(Cached()) = %d, want 2", len(cached))
	}

	// Mutating the returned slice must not affect the cache
	cached[0] = MustDescriptor("other", USB())
	if r.Cached()[0].Identity() != "udid-00" {
		t.Error("Cached() returned a shared slice")
	}

	// An empty enumeration replaces the cache
	enum.devices = nil
	if _, err := r.ListDevices(context.Background()); !errors.Is(err, ErrNoDevicesFound) {
		t.Fatalf("ListDevices() error = %v, want ErrNoDevicesFound", err)
	}
	if got := r.Cached(); len(got) != 0 {
		t.Errorf("Cached() after empty enumeration = %v, want empty", got)
	}
}

func TestResolveName_NoResolver(t *testing.T) {
	r := NewRegistry(&mockEnumerator{}, nil)
	if _, err := r.ResolveName(context.Background(), MustDescriptor("a", USB())); err == nil {
		t.Error("ResolveName() expected error without resolver")
	}
}
