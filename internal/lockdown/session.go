package lockdown

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"github.com/nerrad567/pairgen/internal/device"
	"github.com/nerrad567/pairgen/internal/pairing"
)

// State is the lifecycle state of a Session.
type State int

// Session states. Closed and Failed are terminal.
const (
	StateOpening State = iota
	StateReady
	StateClosed
	StateFailed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Logger defines the logging interface used by sessions.
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

// Session is a protocol session opened against one device for one purpose.
//
// A session is never reused: once Closed or Failed every operation returns
// ErrSessionNotReady. Close must run on every exit path; WithSession
// guarantees that.
//
// All public methods are thread-safe.
type Session struct {
	device  device.Descriptor
	purpose Purpose
	conn    Conn
	logger  Logger

	mu       sync.Mutex
	state    State
	err      error
	released bool
	unlock   func()
}

// Opener opens sessions over a Transport.
//
// At most one session per device identity is open at a time: Open blocks
// until the previous session for the same identity is closed. Heartbeats
// take the same per-identity lock.
type Opener struct {
	transport Transport
	logger    Logger
	locks     *IdentityLocks
}

// NewOpener creates an opener over transport.
func NewOpener(transport Transport) *Opener {
	return &Opener{transport: transport, logger: noopLogger{}, locks: NewIdentityLocks()}
}

// SetLogger sets the logger passed to every session the opener creates.
func (o *Opener) SetLogger(logger Logger) {
	o.logger = logger
}

// Transport returns the underlying transport.
func (o *Opener) Transport() Transport {
	return o.transport
}

// Open connects to d for purpose and returns a Ready session.
//
// Returns ErrSessionOpenFailed when the device is unreachable on its
// transport. No session is returned in that case; there is nothing to close.
func (o *Opener) Open(ctx context.Context, d device.Descriptor, purpose Purpose) (*Session, error) {
	s := &Session{device: d, purpose: purpose, logger: o.logger, state: StateOpening}

	unlock := o.locks.Lock(d.Identity())
	conn, err := o.transport.OpenSession(ctx, d, purpose)
	if err != nil {
		unlock()
		s.state = StateFailed
		s.err = err
		o.logger.Warn("lockdown session open failed",
			"identity", d.Identity(),
			"transport", d.Transport().String(),
			"purpose", string(purpose),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %s: %w", ErrSessionOpenFailed, d.Identity(), err)
	}

	s.conn = conn
	s.unlock = unlock
	s.state = StateReady
	o.logger.Debug("lockdown session opened",
		"identity", d.Identity(),
		"purpose", string(purpose),
	)
	return s, nil
}

// WithSession opens a session, runs fn and closes the session on every
// path, including a panic in fn. fn's error takes precedence over a close
// error.
func (o *Opener) WithSession(ctx context.Context, d device.Descriptor, purpose Purpose, fn func(*Session) error) (err error) {
	s, err := o.Open(ctx, d, purpose)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

// Heartbeat runs a liveness check against identity at addr while holding
// the identity's session lock. It satisfies heartbeat.Heartbeater.
func (o *Opener) Heartbeat(ctx context.Context, identity string, addr netip.AddrPort, purpose Purpose) error {
	unlock := o.locks.Lock(identity)
	defer unlock()
	return o.transport.Heartbeat(ctx, identity, addr, purpose)
}

// Open connects to d over t without logging. See Opener.Open.
func Open(ctx context.Context, t Transport, d device.Descriptor, purpose Purpose) (*Session, error) {
	return NewOpener(t).Open(ctx, d, purpose)
}

// WithSession runs fn inside a session on t without logging. See
// Opener.WithSession.
func WithSession(ctx context.Context, t Transport, d device.Descriptor, purpose Purpose, fn func(*Session) error) error {
	return NewOpener(t).WithSession(ctx, d, purpose, fn)
}

// Device returns the descriptor the session targets.
func (s *Session) Device() device.Descriptor { return s.device }

// Purpose returns the session's purpose tag.
func (s *Session) Purpose() Purpose { return s.purpose }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the reason the session failed, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// DeviceName queries the device's human-readable name.
// A declined query returns ErrAttributeUnavailable and leaves the session Ready.
func (s *Session) DeviceName(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireReady(); err != nil {
		return "", err
	}

	name, err := s.conn.DeviceName(ctx)
	if err != nil {
		if errors.Is(err, ErrAttributeUnavailable) {
			return "", err
		}
		return "", s.fail(err)
	}
	if name == "" {
		return "", fmt.Errorf("%w: empty device name", ErrAttributeUnavailable)
	}
	return name, nil
}

// SetValue writes a device-side configuration value.
//
// A device-side precondition (for example no passcode set) is returned as
// *PreconditionError and leaves the session Ready. Any other failure moves
// the session to StateFailed and matches ErrProtocol.
func (s *Session) SetValue(ctx context.Context, domain, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireReady(); err != nil {
		return err
	}

	if err := s.conn.SetValue(ctx, domain, key, value); err != nil {
		if errors.Is(err, ErrPreconditionUnmet) {
			s.logger.Info("device rejected value",
				"identity", s.device.Identity(),
				"domain", domain,
				"key", key,
				"error", err,
			)
			return err
		}
		return s.fail(err)
	}

	s.logger.Debug("device value set",
		"identity", s.device.Identity(),
		"domain", domain,
		"key", key,
	)
	return nil
}

// RequestPairing runs the pairing handshake and returns the new record.
//
// A network-discovered device is rejected with ErrWrongTransportForPairing
// before the connection is used. Failures split into precondition and
// protocol errors as for SetValue.
func (s *Session) RequestPairing(ctx context.Context) (pairing.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireReady(); err != nil {
		return pairing.Record{}, err
	}
	if s.device.Transport().IsNetwork() {
		return pairing.Record{}, fmt.Errorf("%w: %s was discovered over %s",
			ErrWrongTransportForPairing, s.device.Identity(), s.device.Transport())
	}

	payload, err := s.conn.Pair(ctx)
	if err != nil {
		if errors.Is(err, ErrPreconditionUnmet) {
			return pairing.Record{}, err
		}
		return pairing.Record{}, s.fail(err)
	}
	if len(payload) == 0 {
		return pairing.Record{}, s.fail(errors.New("pairing returned an empty record"))
	}

	s.logger.Info("pairing handshake completed", "identity", s.device.Identity())
	return pairing.Record{OwnerIdentity: s.device.Identity(), Payload: payload}, nil
}

// Close releases the connection. It is idempotent. Opening and Ready move
// to Closed; Failed stays Failed. Only the first call can return an error.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateOpening || s.state == StateReady {
		s.state = StateClosed
	}
	if s.released || s.conn == nil {
		return nil
	}
	s.released = true
	if s.unlock != nil {
		defer s.unlock()
	}

	if err := s.conn.Close(); err != nil {
		s.logger.Warn("closing lockdown session", "identity", s.device.Identity(), "error", err)
		return fmt.Errorf("closing session for %s: %w", s.device.Identity(), err)
	}
	s.logger.Debug("lockdown session closed", "identity", s.device.Identity(), "purpose", string(s.purpose))
	return nil
}

// requireReady must be called with mu held.
func (s *Session) requireReady() error {
	if s.state != StateReady {
		return fmt.Errorf("%w: %s", ErrSessionNotReady, s.state)
	}
	return nil
}

// fail moves the session to StateFailed. Must be called with mu held.
func (s *Session) fail(cause error) error {
	s.state = StateFailed
	s.err = cause
	s.logger.Warn("lockdown session failed",
		"identity", s.device.Identity(),
		"purpose", string(s.purpose),
		"error", cause,
	)
	return fmt.Errorf("%w: %s: %w", ErrProtocol, s.device.Identity(), cause)
}
