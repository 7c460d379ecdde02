package idevice

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nerrad567/pairgen/internal/device"
	"github.com/nerrad567/pairgen/internal/lockdown"
	"github.com/nerrad567/pairgen/internal/pairing"
	"github.com/nerrad567/pairgen/internal/process"
)

const (
	// recordExtension is the extension usbmuxd uses for stored pairing records.
	recordExtension = ".plist"

	// defaultDialTimeout bounds the heartbeat TCP dial when ctx has no deadline.
	defaultDialTimeout = 5 * time.Second
)

// Placeholders substituted into Config.SetValueCommand.
const (
	placeholderUDID   = "{udid}"
	placeholderDomain = "{domain}"
	placeholderKey    = "{key}"
	placeholderValue  = "{value}"
)

// Tools names the libimobiledevice binaries.
type Tools struct {
	DeviceID   string
	DeviceInfo string
	DeviceName string
	DevicePair string
}

// Config holds configuration for the libimobiledevice transport.
type Config struct {
	// Tools are the binaries to run. Bare names are resolved on PATH.
	Tools Tools

	// LockdownDir is where usbmuxd stores pairing records (<udid>.plist).
	LockdownDir string

	// CommandTimeout bounds each tool invocation.
	CommandTimeout time.Duration

	// SetValueCommand is the argv template for writing a lockdown value.
	// {udid}, {domain}, {key} and {value} are substituted per argument.
	SetValueCommand []string

	// PreconditionMarkers are case-insensitive substrings of tool output that
	// identify a refusal the operator can fix.
	PreconditionMarkers []string
}

// Logger defines the logging interface used by the transport.
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

// Transport implements lockdown.Transport over the libimobiledevice tools.
type Transport struct {
	cfg    Config
	runner process.Runner
	dialer func(ctx context.Context, network, address string) (net.Conn, error)
	logger Logger
}

// New creates a transport that runs tools through runner.
func New(cfg Config, runner process.Runner) *Transport {
	d := &net.Dialer{}
	return &Transport{
		cfg:    cfg,
		runner: runner,
		dialer: d.DialContext,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the transport.
func (t *Transport) SetLogger(logger Logger) {
	t.logger = logger
}

// Enumerate lists USB devices followed by network devices, each group in
// the order idevice_id reports them.
//
// A failed USB listing means usbmuxd is unreachable and is returned as an
// error. A failed network listing is logged and the USB devices are still
// returned.
func (t *Transport) Enumerate(ctx context.Context) ([]device.Descriptor, error) {
	usb, err := t.listIdentities(ctx, "-l")
	if err != nil {
		return nil, err
	}

	devices := make([]device.Descriptor, 0, len(usb))
	for _, id := range usb {
		d, err := device.NewDescriptor(id, device.USB())
		if err != nil {
			continue
		}
		devices = append(devices, d)
	}

	network, err := t.listIdentities(ctx, "-n")
	if err != nil {
		t.logger.Warn("network device listing failed", "error", err)
		return devices, nil
	}
	for _, id := range network {
		// idevice_id does not report addresses for network devices
		d, err := device.NewDescriptor(id, device.Network(netip.AddrPort{}))
		if err != nil {
			continue
		}
		devices = append(devices, d)
	}

	return devices, nil
}

func (t *Transport) listIdentities(ctx context.Context, flag string) ([]string, error) {
	res, err := t.run(ctx, t.cfg.Tools.DeviceID, flag)
	if err != nil {
		return nil, fmt.Errorf("listing devices (%s): %w", flag, err)
	}
	return parseIdentities(res.Stdout), nil
}

// OpenSession verifies that d answers on its transport and returns a
// connection bound to it.
func (t *Transport) OpenSession(ctx context.Context, d device.Descriptor, purpose lockdown.Purpose) (lockdown.Conn, error) {
	if err := validIdentity(d.Identity()); err != nil {
		return nil, err
	}

	args := append(targetArgs(d), "-s", "-k", "DeviceClass")
	if _, err := t.run(ctx, t.cfg.Tools.DeviceInfo, args...); err != nil {
		return nil, fmt.Errorf("contacting %s: %w", d.Identity(), err)
	}

	t.logger.Debug("device session opened", "identity", d.Identity(), "purpose", string(purpose))
	return &conn{t: t, d: d, purpose: purpose}, nil
}

// Heartbeat checks that the host holds a pairing record for identity and
// that the device's lockdown port accepts connections at addr.
func (t *Transport) Heartbeat(ctx context.Context, identity string, addr netip.AddrPort, purpose lockdown.Purpose) error {
	if _, err := t.ReadPairingRecord(ctx, identity); err != nil {
		return err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultDialTimeout)
		defer cancel()
	}

	c, err := t.dialer(ctx, "tcp", addr.String())
	if err != nil {
		return fmt.Errorf("connecting to %s at %s: %w", identity, addr, err)
	}
	c.Close() //nolint:errcheck,gosec // Reachability check only

	t.logger.Debug("heartbeat connected", "identity", identity, "addr", addr.String(), "purpose", string(purpose))
	return nil
}

// ReadPairingRecord reads <LockdownDir>/<identity>.plist.
// A missing file is pairing.ErrPairingRecordNotFound.
func (t *Transport) ReadPairingRecord(_ context.Context, identity string) ([]byte, error) {
	if err := validIdentity(identity); err != nil {
		return nil, err
	}

	path := filepath.Join(t.cfg.LockdownDir, identity+recordExtension)
	data, err := os.ReadFile(path) //nolint:gosec // Identity is validated above
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", pairing.ErrPairingRecordNotFound, identity)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// run executes a tool with the configured timeout.
func (t *Transport) run(ctx context.Context, binary string, args ...string) (process.Result, error) {
	return t.runner.Run(ctx, process.Command{
		Name:    filepath.Base(binary),
		Binary:  binary,
		Args:    args,
		Timeout: t.cfg.CommandTimeout,
	})
}

// precondition returns a *PreconditionError if the tool output in res
// matches a configured marker.
func (t *Transport) precondition(res process.Result) *lockdown.PreconditionError {
	output := string(res.Stderr) + "\n" + string(res.Stdout)
	lower := strings.ToLower(output)
	for _, marker := range t.cfg.PreconditionMarkers {
		if marker == "" || !strings.Contains(lower, strings.ToLower(marker)) {
			continue
		}
		return lockdown.NewPreconditionError(firstLineContaining(output, marker))
	}
	return nil
}

// conn is an open session against one device. The tools are stateless, so
// each call runs its own command.
type conn struct {
	t       *Transport
	d       device.Descriptor
	purpose lockdown.Purpose
	closed  bool
}

func (c *conn) DeviceName(ctx context.Context) (string, error) {
	if c.closed {
		return "", net.ErrClosed
	}
	res, err := c.t.run(ctx, c.t.cfg.Tools.DeviceName, targetArgs(c.d)...)
	if err != nil {
		var exitErr *process.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: %w", lockdown.ErrAttributeUnavailable, err)
		}
		return "", err
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

func (c *conn) SetValue(ctx context.Context, domain, key string, value any) error {
	if c.closed {
		return net.ErrClosed
	}
	argv := expandCommand(c.t.cfg.SetValueCommand, c.d.Identity(), domain, key, value)
	if len(argv) == 0 {
		return errors.New("set value command not configured")
	}
	if c.d.Transport().IsNetwork() {
		c.t.logger.Debug("setting value over network transport", "identity", c.d.Identity())
	}

	res, err := c.t.run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return c.t.classify(res, err)
	}
	return nil
}

func (c *conn) Pair(ctx context.Context) ([]byte, error) {
	if c.closed {
		return nil, net.ErrClosed
	}
	res, err := c.t.run(ctx, c.t.cfg.Tools.DevicePair, "-u", c.d.Identity(), "pair")
	if err != nil {
		return nil, c.t.classify(res, err)
	}
	// idevicepair reports some refusals with a zero exit status
	if pe := c.t.precondition(res); pe != nil && !bytes.Contains(res.Stdout, []byte("SUCCESS")) {
		return nil, pe
	}

	// usbmuxd stores the new record; read it back as the opaque payload
	return c.t.ReadPairingRecord(ctx, c.d.Identity())
}

func (c *conn) Close() error {
	c.closed = true
	return nil
}

// classify maps a failed tool run to a precondition, a device refusal or
// the raw error.
func (t *Transport) classify(res process.Result, err error) error {
	var exitErr *process.ExitError
	if !errors.As(err, &exitErr) {
		return err
	}
	if pe := t.precondition(res); pe != nil {
		return pe
	}
	return fmt.Errorf("%w: %w", lockdown.ErrDeviceRejected, err)
}

// targetArgs selects the device and, for network devices, the network
// connection mode.
func targetArgs(d device.Descriptor) []string {
	if d.Transport().IsNetwork() {
		return []string{"-u", d.Identity(), "-n"}
	}
	return []string{"-u", d.Identity()}
}

// expandCommand substitutes placeholders in each argument of tmpl.
func expandCommand(tmpl []string, udid, domain, key string, value any) []string {
	r := strings.NewReplacer(
		placeholderUDID, udid,
		placeholderDomain, domain,
		placeholderKey, key,
		placeholderValue, fmt.Sprint(value),
	)
	out := make([]string, 0, len(tmpl))
	for _, arg := range tmpl {
		out = append(out, r.Replace(arg))
	}
	return out
}

// parseIdentities returns one identity per non-empty output line. Some
// idevice_id versions append " (USB)" or " (Network)".
func parseIdentities(out []byte) []string {
	var ids []string
	seen := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		id, _, _ := strings.Cut(line, " ")
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// firstLineContaining returns the trimmed line of s containing marker, with
// any "ERROR: " prefix removed.
func firstLineContaining(s, marker string) string {
	lowerMarker := strings.ToLower(marker)
	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(strings.ToLower(line), lowerMarker) {
			line = strings.TrimSpace(line)
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	return strings.TrimSpace(s)
}

// validIdentity rejects identities that could escape LockdownDir.
func validIdentity(identity string) error {
	if identity == "" || strings.ContainsAny(identity, `/\`) || strings.Contains(identity, "..") {
		return fmt.Errorf("%w: %q", device.ErrInvalidIdentity, identity)
	}
	return nil
}

var _ lockdown.Transport = (*Transport)(nil)
