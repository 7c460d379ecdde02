// Package pairing holds the host-side pairing credential for a device and
// exports it to disk.
//
// A Record is opaque: the payload is a serialised property list produced by
// the device's pairing handshake, and this package never parses or reformats
// it. Export writes the payload byte-for-byte to <dir>/<identity>.<ext>
// through a temporary file that is renamed into place, so a failed export
// leaves nothing behind in the destination.
//
// Records normally come from a RecordSource (the lockdown directory managed
// by usbmuxd). A record produced by regeneration supersedes the source's copy
// for the rest of the process lifetime.
package pairing
