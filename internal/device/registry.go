package device

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// defaultConcurrency bounds parallel name lookups when none is configured.
const defaultConcurrency = 4

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Enumerator lists the devices currently reachable through the discovery
// layer, in discovery order.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]Descriptor, error)
}

// NameResolver queries a device for its human-readable name.
type NameResolver interface {
	ResolveName(ctx context.Context, d Descriptor) (string, error)
}

// Registry discovers devices and resolves their display names.
//
// The result of the last ListDevices call is cached for read-only callers
// such as the HTTP API. Each enumeration replaces the cache.
//
// All public methods are thread-safe.
type Registry struct {
	enum        Enumerator
	names       NameResolver
	concurrency int
	logger      Logger

	cache   []Descriptor
	cacheMu sync.RWMutex
}

// NewRegistry creates a registry over the given discovery and naming
// collaborators. names may be nil, in which case descriptors are returned
// without display names.
func NewRegistry(enum Enumerator, names NameResolver) *Registry {
	return &Registry{
		enum:        enum,
		names:       names,
		concurrency: defaultConcurrency,
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetConcurrency sets the maximum number of parallel name lookups.
// Values below 1 are ignored.
func (r *Registry) SetConcurrency(n int) {
	if n > 0 {
		r.concurrency = n
	}
}

// ListDevices enumerates reachable devices and resolves their names.
//
// The returned slice follows discovery order. A device whose name cannot be
// resolved is still returned, without a display name.
//
// Returns:
//   - ErrEnumerationUnavailable if the discovery layer cannot be reached
//   - ErrNoDevicesFound if discovery succeeded but reported nothing
func (r *Registry) ListDevices(ctx context.Context) ([]Descriptor, error) {
	found, err := r.enum.Enumerate(ctx)
	if err != nil {
		r.logger.Error("device enumeration failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrEnumerationUnavailable, err)
	}
	if len(found) == 0 {
		r.setCache(nil)
		return nil, ErrNoDevicesFound
	}

	devices := make([]Descriptor, len(found))
	copy(devices, found)

	if r.names != nil {
		var g errgroup.Group
		g.SetLimit(r.concurrency)
		for i := range devices {
			g.Go(func() error {
				name, err := r.names.ResolveName(ctx, devices[i])
				if err != nil {
					r.logger.Warn("device name unavailable",
						"identity", devices[i].Identity(),
						"transport", devices[i].Transport().String(),
						"error", err,
					)
					return nil
				}
				devices[i] = devices[i].WithDisplayName(name)
				return nil
			})
		}
		_ = g.Wait() //nolint:errcheck // Lookups never return errors
	}

	r.setCache(devices)
	r.logger.Debug("devices enumerated", "count", len(devices))

	return devices, nil
}

// ResolveName queries d for its display name.
func (r *Registry) ResolveName(ctx context.Context, d Descriptor) (string, error) {
	if r.names == nil {
		return "", fmt.Errorf("resolving name for %s: no resolver configured", d.Identity())
	}
	return r.names.ResolveName(ctx, d)
}

// Lookup re-enumerates and returns the first descriptor with identity.
// When a device is visible over more than one transport, the one discovered
// first wins.
func (r *Registry) Lookup(ctx context.Context, identity string) (Descriptor, error) {
	devices, err := r.ListDevices(ctx)
	if err != nil {
		return Descriptor{}, err
	}
	for _, d := range devices {
		if d.Identity() == identity {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, identity)
}

// Cached returns a copy of the last enumeration result.
func (r *Registry) Cached() []Descriptor {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	out := make([]Descriptor, len(r.cache))
	copy(out, r.cache)
	return out
}

func (r *Registry) setCache(devices []Descriptor) {
	cached := make([]Descriptor, len(devices))
	copy(cached, devices)

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	r.cache = cached
}
