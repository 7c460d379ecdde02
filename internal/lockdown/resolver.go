package lockdown

import (
	"context"

	"github.com/nerrad567/pairgen/internal/device"
)

// NameResolver resolves display names through short-lived sessions.
// It satisfies device.NameResolver.
type NameResolver struct {
	opener *Opener
}

// NewNameResolver creates a resolver that opens one session per lookup.
func NewNameResolver(opener *Opener) *NameResolver {
	return &NameResolver{opener: opener}
}

// ResolveName opens a PurposeNameLookup session, asks for the name and
// closes the session.
func (r *NameResolver) ResolveName(ctx context.Context, d device.Descriptor) (string, error) {
	var name string
	err := r.opener.WithSession(ctx, d, PurposeNameLookup, func(s *Session) error {
		var err error
		name, err = s.DeviceName(ctx)
		return err
	})
	return name, err
}

var _ device.NameResolver = (*NameResolver)(nil)
