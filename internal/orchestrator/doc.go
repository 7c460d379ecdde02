// Package orchestrator ties device discovery, lockdown sessions, pairing
// records and heartbeats into the four operator workflows:
//
//   - export: copy the host's pairing record for a device to a directory
//   - wifi-test: confirm the device answers over WiFi
//   - wifi-enable: turn on WiFi sync on the device
//   - regenerate: pair again over USB and export the new record
//
// Each workflow returns a Result or an error carrying one of the sentinel
// kinds from the device, lockdown, pairing and heartbeat packages. Nothing
// is retried and nothing here exits the process; the caller decides.
//
// Every workflow emits one Event to the configured Recorder when it
// finishes, successful or not.
package orchestrator
