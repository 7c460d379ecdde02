// Package idevice implements the lockdown transport over the
// libimobiledevice command-line tools.
//
// Discovery runs idevice_id, session checks run ideviceinfo, names come from
// idevicename and pairing from idevicepair. Pairing records are read from
// the usbmuxd lockdown directory (/var/lib/lockdown by default), which
// usbmuxd keeps up to date after every successful pair. Writing lockdown
// values is delegated to a configurable command because libimobiledevice
// ships no tool for it; the default uses pymobiledevice3.
//
// Tool failures are classified by their output: text matching a configured
// precondition marker (a passcode prompt, an unanswered trust dialog)
// becomes a *lockdown.PreconditionError, any other non-zero exit is
// lockdown.ErrDeviceRejected.
package idevice
