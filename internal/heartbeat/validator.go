package heartbeat

import (
	"context"
	"net/netip"
	"time"

	"github.com/nerrad567/pairgen/internal/device"
	"github.com/nerrad567/pairgen/internal/lockdown"
)

// Status is the result of a reachability check.
type Status string

// Outcome statuses.
const (
	StatusReachable   Status = "reachable"
	StatusUnreachable Status = "unreachable"
)

// Outcome is the advisory result of Validate. An Unreachable outcome never
// invalidates the stored pairing record.
type Outcome struct {
	Status Status `json:"status"`

	// Reason explains an Unreachable outcome.
	Reason string `json:"reason,omitempty"`

	// Verified is true when a heartbeat actually completed. It is false for
	// devices assumed reachable because they were discovered over the network.
	Verified bool `json:"verified"`
}

// Reachable reports whether the device answered or was assumed reachable.
func (o Outcome) Reachable() bool {
	return o.Status == StatusReachable
}

// Heartbeater performs the network liveness check.
type Heartbeater interface {
	Heartbeat(ctx context.Context, identity string, addr netip.AddrPort, purpose lockdown.Purpose) error
}

// Logger defines the logging interface used by the Validator.
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

// Validator checks that a device answers over the network using the host's
// existing pairing record.
type Validator struct {
	hb      Heartbeater
	timeout time.Duration
	logger  Logger
}

// NewValidator creates a validator. A zero timeout leaves the deadline to ctx.
func NewValidator(hb Heartbeater, timeout time.Duration) *Validator {
	return &Validator{hb: hb, timeout: timeout, logger: noopLogger{}}
}

// SetLogger sets the logger for the validator.
func (v *Validator) SetLogger(logger Logger) {
	v.logger = logger
}

// Validate checks d at addr.
//
// A device discovered over the network is reported Reachable without a
// transport call; Verified is false in that case. Otherwise a heartbeat is
// sent to addr and any failure becomes an Unreachable outcome.
func (v *Validator) Validate(ctx context.Context, d device.Descriptor, addr netip.AddrPort) Outcome {
	if d.Transport().IsNetwork() {
		v.logger.Info("reachability assumed from network discovery",
			"identity", d.Identity(),
			"transport", d.Transport().String(),
		)
		return Outcome{Status: StatusReachable}
	}

	if !addr.IsValid() {
		return Outcome{Status: StatusUnreachable, Reason: "no network address given"}
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := v.hb.Heartbeat(ctx, d.Identity(), addr, lockdown.PurposeHeartbeat); err != nil {
		v.logger.Warn("heartbeat failed",
			"identity", d.Identity(),
			"addr", addr.String(),
			"error", err,
		)
		return Outcome{Status: StatusUnreachable, Reason: err.Error()}
	}

	v.logger.Info("heartbeat verified",
		"identity", d.Identity(),
		"addr", addr.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Outcome{Status: StatusReachable, Verified: true}
}
