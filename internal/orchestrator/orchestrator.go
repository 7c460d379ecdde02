package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"path/filepath"
	"time"

	"github.com/nerrad567/pairgen/internal/device"
	"github.com/nerrad567/pairgen/internal/heartbeat"
	"github.com/nerrad567/pairgen/internal/lockdown"
	"github.com/nerrad567/pairgen/internal/pairing"
)

// Logger defines the logging interface used by the Orchestrator.
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

// Config holds the device-side settings used by the operations.
type Config struct {
	// WiFiDomain and WiFiKey name the lockdown value that enables WiFi sync.
	WiFiDomain string
	WiFiKey    string

	// HeartbeatPort is used when the operator gives an address without a port.
	HeartbeatPort uint16

	// Source tags recorded events ("cli", "api").
	Source string
}

// Deps holds the dependencies required by the Orchestrator.
type Deps struct {
	Config    Config
	Registry  *device.Registry
	Opener    *lockdown.Opener
	Store     *pairing.Store
	Validator *heartbeat.Validator
	Recorder  Recorder // optional
	Logger    Logger   // optional
}

// Result is the outcome of a successful operation.
type Result struct {
	Operation   Operation          `json:"operation"`
	Identity    string             `json:"identity"`
	Destination string             `json:"destination,omitempty"`
	Outcome     *heartbeat.Outcome `json:"outcome,omitempty"`
	Message     string             `json:"message"`
}

// Orchestrator runs the four device workflows.
//
// All session-bearing work for one device identity is serialised, so
// concurrent regenerations run one after the other. The Opener additionally
// keeps name lookups from overlapping an operation's session.
//
// Once an operation has started talking to a device it is not cancelled by
// ctx; the transport's command timeout is its only deadline. ctx still
// governs prompts.
//
// All public methods are thread-safe.
type Orchestrator struct {
	cfg       Config
	registry  *device.Registry
	opener    *lockdown.Opener
	store     *pairing.Store
	validator *heartbeat.Validator
	recorder  Recorder
	logger    Logger
	locks     *lockdown.IdentityLocks
	now       func() time.Time
}

// New creates an orchestrator.
//
// Returns an error if a required dependency is missing.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Opener == nil {
		return nil, fmt.Errorf("session opener is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("pairing store is required")
	}
	if deps.Validator == nil {
		return nil, fmt.Errorf("heartbeat validator is required")
	}

	cfg := deps.Config
	if cfg.HeartbeatPort == 0 {
		cfg.HeartbeatPort = heartbeat.DefaultPort
	}
	if cfg.Source == "" {
		cfg.Source = "cli"
	}

	o := &Orchestrator{
		cfg:       cfg,
		registry:  deps.Registry,
		opener:    deps.Opener,
		store:     deps.Store,
		validator: deps.Validator,
		recorder:  deps.Recorder,
		logger:    deps.Logger,
		locks:     lockdown.NewIdentityLocks(),
		now:       time.Now,
	}
	if o.logger == nil {
		o.logger = noopLogger{}
	}
	return o, nil
}

// Devices lists reachable devices in discovery order.
func (o *Orchestrator) Devices(ctx context.Context) ([]device.Descriptor, error) {
	return o.registry.ListDevices(ctx)
}

// CachedDevices returns the devices found by the most recent listing
// without enumerating again.
func (o *Orchestrator) CachedDevices() []device.Descriptor {
	return o.registry.Cached()
}

// Lookup returns the reachable device with identity.
func (o *Orchestrator) Lookup(ctx context.Context, identity string) (device.Descriptor, error) {
	return o.registry.Lookup(ctx, identity)
}

// Run dispatches op against d.
func (o *Orchestrator) Run(ctx context.Context, op Operation, d device.Descriptor, p Prompt) (Result, error) {
	switch op {
	case OpExport:
		return o.ExportPairingFile(ctx, d, p)
	case OpWiFiTest:
		return o.TestWiFiSync(ctx, d, p)
	case OpWiFiEnable:
		return o.EnableWiFiSync(ctx, d)
	case OpRegenerate:
		return o.RegeneratePairing(ctx, d, p)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
}

// ExportPairingFile reads the host's record for d and writes it to the
// directory the operator chooses.
func (o *Orchestrator) ExportPairingFile(ctx context.Context, d device.Descriptor, p Prompt) (res Result, err error) {
	start := o.now()
	defer func() { o.finish(ctx, OpExport, d, start, res, err) }()

	rec, err := o.readRecord(ctx, d)
	if err != nil {
		return Result{}, err
	}

	// The prompt may wait on the operator; no lock is held while it does
	return o.export(ctx, OpExport, rec, p)
}

// readRecord reads d's pairing record under the device lock.
func (o *Orchestrator) readRecord(ctx context.Context, d device.Descriptor) (pairing.Record, error) {
	unlock := o.locks.Lock(d.Identity())
	defer unlock()

	rec, err := o.store.Read(context.WithoutCancel(ctx), d.Identity())
	if err != nil {
		return pairing.Record{}, err
	}
	if err := pairing.VerifyOwner(rec, d.Identity()); err != nil {
		return pairing.Record{}, err
	}
	return rec, nil
}

// TestWiFiSync checks that d answers over the network.
//
// A device discovered over the network passes without a new session. For a
// USB device the operator is asked for its address, which must parse before
// anything is sent.
func (o *Orchestrator) TestWiFiSync(ctx context.Context, d device.Descriptor, p Prompt) (res Result, err error) {
	start := o.now()
	defer func() { o.finish(ctx, OpWiFiTest, d, start, res, err) }()

	var addr netip.AddrPort
	if !d.Transport().IsNetwork() {
		input, err := p.AskAddress(ctx, d.Identity())
		if err != nil {
			return Result{}, err
		}
		addr, err = heartbeat.ParseAddress(input, o.cfg.HeartbeatPort)
		if err != nil {
			return Result{}, err
		}
	}

	unlock := o.locks.Lock(d.Identity())
	defer unlock()

	outcome := o.validator.Validate(context.WithoutCancel(ctx), d, addr)
	res = Result{Operation: OpWiFiTest, Identity: d.Identity(), Outcome: &outcome}
	if !outcome.Reachable() {
		return res, fmt.Errorf("%w: %s", ErrUnreachable, outcome.Reason)
	}

	res.Message = "Test succeeded"
	return res, nil
}

// EnableWiFiSync sets the device value that turns on WiFi sync.
//
// A refusal is reported as a *lockdown.PreconditionError telling the
// operator to set a passcode. It is not retried.
func (o *Orchestrator) EnableWiFiSync(ctx context.Context, d device.Descriptor) (res Result, err error) {
	start := o.now()
	defer func() { o.finish(ctx, OpWiFiEnable, d, start, res, err) }()

	unlock := o.locks.Lock(d.Identity())
	defer unlock()

	work := context.WithoutCancel(ctx)
	err = o.opener.WithSession(work, d, lockdown.PurposeEnableWiFi, func(s *lockdown.Session) error {
		return s.SetValue(work, o.cfg.WiFiDomain, o.cfg.WiFiKey, true)
	})
	if errors.Is(err, lockdown.ErrDeviceRejected) {
		o.logger.Info("device refused to enable wifi sync", "identity", d.Identity(), "error", err)
		return Result{}, lockdown.NewPreconditionError(passcodeRequired)
	}
	if err != nil {
		return Result{}, err
	}

	return Result{Operation: OpWiFiEnable, Identity: d.Identity(), Message: "WiFi sync enabled"}, nil
}

// RegeneratePairing runs a new pairing handshake over USB and exports the
// resulting record. Nothing is exported unless pairing succeeds.
func (o *Orchestrator) RegeneratePairing(ctx context.Context, d device.Descriptor, p Prompt) (res Result, err error) {
	start := o.now()
	defer func() { o.finish(ctx, OpRegenerate, d, start, res, err) }()

	if d.Transport().IsNetwork() {
		return Result{}, fmt.Errorf("%w: device must be plugged into USB", lockdown.ErrWrongTransportForPairing)
	}

	unlock := o.locks.Lock(d.Identity())
	defer unlock()

	work := context.WithoutCancel(ctx)
	var rec pairing.Record
	err = o.opener.WithSession(work, d, lockdown.PurposePairingRecord, func(s *lockdown.Session) error {
		var err error
		rec, err = s.RequestPairing(work)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	if err := pairing.VerifyOwner(rec, d.Identity()); err != nil {
		return Result{}, err
	}
	if err := o.store.Supersede(rec); err != nil {
		return Result{}, err
	}

	if n, ok := p.(Notifier); ok {
		n.Notify("Pairing succeeded")
	}

	return o.export(ctx, OpRegenerate, rec, p)
}

// export asks for a destination and writes rec there.
func (o *Orchestrator) export(ctx context.Context, op Operation, rec pairing.Record, p Prompt) (Result, error) {
	dir, err := p.ChooseDirectory(ctx, rec.OwnerIdentity)
	if err != nil {
		return Result{}, err
	}

	path, err := o.store.Export(context.WithoutCancel(ctx), rec, dir)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Operation:   op,
		Identity:    rec.OwnerIdentity,
		Destination: path,
		Message:     fmt.Sprintf("Exported %q to %s", o.store.FileName(rec.OwnerIdentity), filepath.Dir(path)),
	}, nil
}

// finish logs the outcome and emits the event. Recorder failures are logged
// and never change the operation's result.
func (o *Orchestrator) finish(ctx context.Context, op Operation, d device.Descriptor, start time.Time, res Result, err error) {
	ev := Event{
		Operation:   op,
		Identity:    d.Identity(),
		Transport:   d.Transport().String(),
		Success:     err == nil,
		ErrorKind:   ErrorKind(err),
		Destination: res.Destination,
		Duration:    o.now().Sub(start),
		Source:      o.cfg.Source,
		At:          start.UTC(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if res.Outcome != nil {
		ev.Verified = res.Outcome.Verified
	}

	if err != nil {
		o.logger.Warn("operation failed",
			"operation", string(op),
			"identity", d.Identity(),
			"kind", ev.ErrorKind,
			"error", err,
		)
	} else {
		o.logger.Info("operation succeeded",
			"operation", string(op),
			"identity", d.Identity(),
			"duration_ms", ev.Duration.Milliseconds(),
		)
	}

	if o.recorder == nil {
		return
	}
	// Record even if the operation's context was cancelled
	if rerr := o.recorder.Record(context.WithoutCancel(ctx), ev); rerr != nil {
		o.logger.Warn("recording operation event failed", "operation", string(op), "error", rerr)
	}
}
