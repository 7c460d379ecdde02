// Package device models the mobile devices pairgen can talk to and the
// registry that discovers them.
//
// A Descriptor couples an immutable identity (the UDID) with the transport
// the device was discovered on (USB or network) and a lazily resolved
// display name. The transport records how the device was found; it is not
// a promise about what the device can do.
//
// The Registry enumerates devices through an Enumerator and resolves names
// through a NameResolver. Name lookups run in parallel with a bounded limit
// and are written back by index, so the returned slice always follows
// discovery order no matter which lookup finishes first. A failed lookup is
// logged and leaves the descriptor unnamed; it never aborts enumeration.
//
// # Usage
//
//	registry := device.NewRegistry(transport, lockdown.NewNameResolver(transport))
//	registry.SetLogger(log)
//	registry.SetConcurrency(cfg.Transport.NameConcurrency)
//
//	devices, err := registry.ListDevices(ctx)
//	switch {
//	case errors.Is(err, device.ErrEnumerationUnavailable):
//	    // usbmuxd is not running
//	case errors.Is(err, device.ErrNoDevicesFound):
//	    // nothing attached
//	}
package device
