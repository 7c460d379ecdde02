package pairing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	// DefaultExtension is the exported file extension when none is configured.
	DefaultExtension = "plist"

	// dirPermissions is the permission mode for created export directories.
	dirPermissions = 0750

	// filePermissions is the permission mode for exported records. Records
	// grant full device access, so they are private to the owner.
	filePermissions = 0600
)

// Logger defines the logging interface used by the Store.
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

// RecordSource reads the raw pairing record the host holds for a device.
// Implementations return an error matching ErrPairingRecordNotFound when the
// device has never been paired with this host.
type RecordSource interface {
	ReadPairingRecord(ctx context.Context, identity string) ([]byte, error)
}

// Store reads, supersedes and exports pairing records.
//
// All public methods are thread-safe.
type Store struct {
	source    RecordSource
	extension string
	logger    Logger

	// superseded holds records produced by regeneration in this process.
	superseded map[string]Record
	mu         sync.RWMutex

	// Filesystem hooks, replaced in tests.
	createTemp func(dir, pattern string) (*os.File, error)
	rename     func(oldpath, newpath string) error
}

// NewStore creates a store over source. An empty extension selects
// DefaultExtension; a leading dot is ignored.
func NewStore(source RecordSource, extension string) *Store {
	extension = strings.TrimPrefix(strings.TrimSpace(extension), ".")
	if extension == "" {
		extension = DefaultExtension
	}
	return &Store{
		source:     source,
		extension:  extension,
		logger:     noopLogger{},
		superseded: make(map[string]Record),
		createTemp: os.CreateTemp,
		rename:     os.Rename,
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// FileName returns the deterministic export file name for identity.
func (s *Store) FileName(identity string) string {
	return identity + "." + s.extension
}

// Read returns the current record for identity.
//
// A record passed to Supersede takes precedence over the source. An absent or
// empty record is ErrPairingRecordNotFound.
func (s *Store) Read(ctx context.Context, identity string) (Record, error) {
	s.mu.RLock()
	rec, ok := s.superseded[identity]
	s.mu.RUnlock()
	if ok {
		return rec.clone(), nil
	}

	if s.source == nil {
		return Record{}, fmt.Errorf("%w: %s", ErrPairingRecordNotFound, identity)
	}

	payload, err := s.source.ReadPairingRecord(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrPairingRecordNotFound) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("reading pairing record for %s: %w", identity, err)
	}
	if len(payload) == 0 {
		return Record{}, fmt.Errorf("%w: %s: empty record", ErrPairingRecordNotFound, identity)
	}

	return Record{OwnerIdentity: identity, Payload: payload}, nil
}

// Supersede replaces the current record for rec.OwnerIdentity. The previous
// record is discarded, never merged.
func (s *Store) Supersede(rec Record) error {
	if rec.OwnerIdentity == "" {
		return fmt.Errorf("%w: record has no owner", ErrIdentityMismatch)
	}
	if rec.Empty() {
		return fmt.Errorf("superseding record for %s: empty payload", rec.OwnerIdentity)
	}

	s.mu.Lock()
	s.superseded[rec.OwnerIdentity] = rec.clone()
	s.mu.Unlock()

	s.logger.Info("pairing record superseded", "identity", rec.OwnerIdentity, "bytes", len(rec.Payload))
	return nil
}

// Export writes rec's payload verbatim to dir/FileName(rec.OwnerIdentity)
// and returns the written path.
//
// The payload is written to a temporary file in dir, synced and renamed into
// place. On any failure the temporary file is removed.
//
// Returns:
//   - ErrDestinationNotSelected if dir is empty (nothing is created)
//   - ErrIdentityMismatch if rec has no owner
//   - ErrDestinationUnwritable if dir or the file cannot be written
func (s *Store) Export(ctx context.Context, rec Record, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", ErrDestinationNotSelected
	}
	if rec.OwnerIdentity == "" {
		return "", fmt.Errorf("%w: record has no owner", ErrIdentityMismatch)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", fmt.Errorf("%w: creating %s: %w", ErrDestinationUnwritable, dir, err)
	}

	dest := filepath.Join(dir, s.FileName(rec.OwnerIdentity))
	if err := s.writeAtomic(dest, rec.Payload); err != nil {
		s.logger.Error("pairing record export failed", "identity", rec.OwnerIdentity, "path", dest, "error", err)
		return "", fmt.Errorf("%w: %w", ErrDestinationUnwritable, err)
	}

	s.logger.Info("pairing record exported", "identity", rec.OwnerIdentity, "path", dest)
	return dest, nil
}

func (s *Store) writeAtomic(dest string, payload []byte) (err error) {
	tmp, err := s.createTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()        //nolint:errcheck,gosec // Already failing
			os.Remove(tmpPath) //nolint:errcheck,gosec // Best effort cleanup
		}
	}()

	if err = tmp.Chmod(filePermissions); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if _, err = tmp.Write(payload); err != nil {
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err = s.rename(tmpPath, dest); err != nil {
		return fmt.Errorf("renaming into %s: %w", dest, err)
	}
	return nil
}

// VerifyOwner returns ErrIdentityMismatch unless rec belongs to identity.
func VerifyOwner(rec Record, identity string) error {
	if rec.OwnerIdentity != identity {
		return fmt.Errorf("%w: record owned by %q, requested %q", ErrIdentityMismatch, rec.OwnerIdentity, identity)
	}
	return nil
}
