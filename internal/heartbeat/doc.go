// Package heartbeat confirms that a device is reachable over WiFi with the
// host's current pairing record.
//
// The check is advisory. It never touches the pairing record, so a device
// that is merely off-network does not lose its trust relationship.
package heartbeat
