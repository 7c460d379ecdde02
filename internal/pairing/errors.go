package pairing

import "errors"

// Domain errors for the pairing package.
var (
	// ErrPairingRecordNotFound is returned when no credential exists on the
	// host for an identity.
	ErrPairingRecordNotFound = errors.New("pairing: record not found")

	// ErrDestinationNotSelected is returned when the caller declined to choose
	// an export destination.
	ErrDestinationNotSelected = errors.New("pairing: destination not selected")

	// ErrDestinationUnwritable is returned when the export directory or file
	// cannot be created or written.
	ErrDestinationUnwritable = errors.New("pairing: destination unwritable")

	// ErrIdentityMismatch is returned when a record would be stored or
	// exported under an identity other than its owner.
	ErrIdentityMismatch = errors.New("pairing: identity mismatch")
)
