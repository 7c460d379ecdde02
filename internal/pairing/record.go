package pairing

import "bytes"

// Record is the pairing credential for one device.
type Record struct {
	// OwnerIdentity is the device identity the record authenticates.
	OwnerIdentity string

	// Payload is the opaque credential blob.
	Payload []byte
}

// Empty reports whether the record carries no payload.
func (r Record) Empty() bool {
	return len(r.Payload) == 0
}

// Equal reports whether r and other have the same owner and payload.
func (r Record) Equal(other Record) bool {
	return r.OwnerIdentity == other.OwnerIdentity && bytes.Equal(r.Payload, other.Payload)
}

// clone returns a copy that does not share the payload buffer.
func (r Record) clone() Record {
	return Record{OwnerIdentity: r.OwnerIdentity, Payload: bytes.Clone(r.Payload)}
}
