package pairing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// mockSource serves raw records from a map.
type mockSource struct {
	records map[string][]byte
	err     error
	calls   int
}

func (m *mockSource) ReadPairingRecord(_ context.Context, identity string) ([]byte, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	payload, ok := m.records[identity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPairingRecordNotFound, identity)
	}
	return payload, nil
}

// samplePayload is a plist-like blob including bytes a text rewrite would mangle.
var samplePayload = []byte("<?xml version=\"1.0\"?>\r\n<plist><dict>\x00\xff\t</dict></plist>\n")

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s) error = %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRead(t *testing.T) {
	tests := []struct {
		name     string
		source   *mockSource
		identity string
		wantErr  error
	}{
		{
			name:     "present",
			source:   &mockSource{records: map[string][]byte{"d1": samplePayload}},
			identity: "d1",
		},
		{
			name:     "never paired",
			source:   &mockSource{records: map[string][]byte{}},
			identity: "d1",
			wantErr:  ErrPairingRecordNotFound,
		},
		{
			name:     "empty record",
			source:   &mockSource{records: map[string][]byte{"d1": {}}},
			identity: "d1",
			wantErr:  ErrPairingRecordNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.source, "")
			rec, err := s.Read(context.Background(), tt.identity)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Read() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if rec.OwnerIdentity != tt.identity {
				t.Errorf("OwnerIdentity = %q, want %q", rec.OwnerIdentity, tt.identity)
			}
			if !bytes.Equal(rec.Payload, samplePayload) {
				t.Error("Payload differs from source")
			}
		})
	}
}

func TestRead_SourceFailure(t *testing.T) {
	s := NewStore(&mockSource{err: errors.New("permission denied")}, "")
	_, err := s.Read(context.Background(), "d1")
	if err == nil {
		t.Fatal("Read() expected error")
	}
	if errors.Is(err, ErrPairingRecordNotFound) {
		t.Error("source failure must not be reported as not found")
	}
}

func TestExport_RoundTrip(t *testing.T) {
	identities := []string{"00008030-001A2B3C0E", "abc", "d1"}
	records := map[string][]byte{}
	for i, id := range identities {
		records[id] = append(bytes.Clone(samplePayload), byte(i))
	}

	s := NewStore(&mockSource{records: records}, "plist")
	dir := t.TempDir()

	for _, id := range identities {
		t.Run(id, func(t *testing.T) {
			rec, err := s.Read(context.Background(), id)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}

			path, err := s.Export(context.Background(), rec, dir)
			if err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			if want := filepath.Join(dir, id+".plist"); path != want {
				t.Errorf("path = %q, want %q", path, want)
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if !bytes.Equal(got, rec.Payload) {
				t.Error("exported bytes differ from record payload")
			}

			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("Stat() error = %v", err)
			}
			if perm := info.Mode().Perm(); perm != filePermissions {
				t.Errorf("permissions = %o, want %o", perm, filePermissions)
			}
		})
	}

	if n := len(dirEntries(t, dir)); n != len(identities) {
		t.Errorf("directory has %d entries, want %d", n, len(identities))
	}
}

func TestExport_DoesNotMutateRecord(t *testing.T) {
	s := NewStore(nil, "")
	rec := Record{OwnerIdentity: "d1", Payload: bytes.Clone(samplePayload)}

	if _, err := s.Export(context.Background(), rec, t.TempDir()); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !bytes.Equal(rec.Payload, samplePayload) {
		t.Error("Export() mutated the record payload")
	}
}

func TestExport_DestinationNotSelected(t *testing.T) {
	parent := t.TempDir()
	s := NewStore(nil, "")
	rec := Record{OwnerIdentity: "d1", Payload: samplePayload}

	for _, dir := range []string{"", "   "} {
		if _, err := s.Export(context.Background(), rec, dir); !errors.Is(err, ErrDestinationNotSelected) {
			t.Errorf("Export(%q) error = %v, want ErrDestinationNotSelected", dir, err)
		}
	}
	if entries := dirEntries(t, parent); len(entries) != 0 {
		t.Errorf("files created: %v", entries)
	}
	if _, err := os.Stat("d1.plist"); !os.IsNotExist(err) {
		t.Error("file created in working directory")
	}
}

func TestExport_DirectoryUnwritable(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	s := NewStore(nil, "")
	rec := Record{OwnerIdentity: "d1", Payload: samplePayload}

	_, err := s.Export(context.Background(), rec, filepath.Join(blocker, "sub"))
	if !errors.Is(err, ErrDestinationUnwritable) {
		t.Fatalf("Export() error = %v, want ErrDestinationUnwritable", err)
	}
}

func TestExport_NoPartialFileOnWriteError(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *Store)
	}{
		{
			name: "rename fails",
			setup: func(s *Store) {
				s.rename = func(string, string) error { return errors.New("disk full") }
			},
		},
		{
			name: "temp file cannot be created",
			setup: func(s *Store) {
				s.createTemp = func(string, string) (*os.File, error) { return nil, errors.New("read-only filesystem") }
			},
		},
		{
			name: "write fails",
			setup: func(s *Store) {
				s.createTemp = func(dir, pattern string) (*os.File, error) {
					f, err := os.CreateTemp(dir, pattern)
					if err != nil {
						return nil, err
					}
					// Reopen read-only so the payload write fails
					name := f.Name()
					f.Close() //nolint:errcheck,gosec // Test setup
					return os.Open(name)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			s := NewStore(nil, "")
			tt.setup(s)

			rec := Record{OwnerIdentity: "d1", Payload: samplePayload}
			path, err := s.Export(context.Background(), rec, dir)
			if !errors.Is(err, ErrDestinationUnwritable) {
				t.Fatalf("Export() error = %v, want ErrDestinationUnwritable", err)
			}
			if path != "" {
				t.Errorf("path = %q, want empty", path)
			}
			if entries := dirEntries(t, dir); len(entries) != 0 {
				t.Errorf("leftover files: %v", entries)
			}
		})
	}
}

func TestExport_Overwrites(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(nil, ".plist")

	old := Record{OwnerIdentity: "d1", Payload: []byte("old record, longer than the new one")}
	if _, err := s.Export(context.Background(), old, dir); err != nil {
		t.Fatalf("first Export() error = %v", err)
	}
	path, err := s.Export(context.Background(), Record{OwnerIdentity: "d1", Payload: []byte("new")}, dir)
	if err != nil {
		t.Fatalf("second Export() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Errorf("contents = %q, want %q", got, "new")
	}
}

func TestExport_NoOwner(t *testing.T) {
	s := NewStore(nil, "")
	_, err := s.Export(context.Background(), Record{Payload: samplePayload}, t.TempDir())
	if !errors.Is(err, ErrIdentityMismatch) {
		t.Errorf("Export() error = %v, want ErrIdentityMismatch", err)
	}
}

func TestSupersede(t *testing.T) {
	source := &mockSource{records: map[string][]byte{"d1": []byte("original")}}
	s := NewStore(source, "")
	ctx := context.Background()

	fresh := Record{OwnerIdentity: "d1", Payload: []byte("regenerated")}
	if err := s.Supersede(fresh); err != nil {
		t.Fatalf("Supersede() error = %v", err)
	}

	// Caller mutation after Supersede must not leak into the store
	fresh.Payload[0] = 'X'

	rec, err := s.Read(ctx, "d1")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(rec.Payload) != "regenerated" {
		t.Errorf("Payload = %q, want %q", rec.Payload, "regenerated")
	}
	if source.calls != 0 {
		t.Errorf("source consulted %d times after supersede", source.calls)
	}

	// Last writer wins
	if err := s.Supersede(Record{OwnerIdentity: "d1", Payload: []byte("again")}); err != nil {
		t.Fatal(err)
	}
	rec, _ = s.Read(ctx, "d1")
	if string(rec.Payload) != "again" {
		t.Errorf("Payload = %q, want %q", rec.Payload, "again")
	}

	// Other identities still come from the source
	if _, err := s.Read(ctx, "d2"); !errors.Is(err, ErrPairingRecordNotFound) {
		t.Errorf("Read(d2) error = %v, want ErrPairingRecordNotFound", err)
	}
}

func TestSupersede_Invalid(t *testing.T) {
	s := NewStore(nil, "")
	if err := s.Supersede(Record{Payload: []byte("x")}); !errors.Is(err, ErrIdentityMismatch) {
		t.Errorf("Supersede(no owner) error = %v, want ErrIdentityMismatch", err)
	}
	if err := s.Supersede(Record{OwnerIdentity: "d1"}); err == nil {
		t.Error("Supersede(empty payload) expected error")
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"", "d1.plist"},
		{"plist", "d1.plist"},
		{".mobiledevicepairing", "d1.mobiledevicepairing"},
	}
	for _, tt := range tests {
		if got := NewStore(nil, tt.ext).FileName("d1"); got != tt.want {
			t.Errorf("FileName() with ext %q = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestVerifyOwner(t *testing.T) {
	rec := Record{OwnerIdentity: "d1", Payload: samplePayload}
	if err := VerifyOwner(rec, "d1"); err != nil {
		t.Errorf("VerifyOwner(d1) error = %v", err)
	}
	if err := VerifyOwner(rec, "d2"); !errors.Is(err, ErrIdentityMismatch) {
		t.Errorf("VerifyOwner(d2) error = %v, want ErrIdentityMismatch", err)
	}
}
