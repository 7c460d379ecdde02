package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the root of every pairgen topic when the
// configuration does not name one.
const DefaultTopicPrefix = "pairgen"

// Topics provides builders for pairgen MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{Prefix: "pairgen"}
//	topics.OperationEvent("export", "00008101-000A")
//	// Returns: "pairgen/events/export/00008101-000A"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.Trim(t.Prefix, "/")
	if p == "" {
		return DefaultTopicPrefix
	}
	return p
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: pairgen/system/status
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// OperationEvent returns the topic an operation's outcome is published on.
// Wildcard characters in identity are replaced so the topic stays literal.
//
// Example: pairgen/events/regenerate/00008101-000A
func (t Topics) OperationEvent(operation, identity string) string {
	return fmt.Sprintf("%s/events/%s/%s", t.prefix(), sanitiseLevel(operation), sanitiseLevel(identity))
}

// AllOperationEvents returns a wildcard matching every operation event.
//
// Example: pairgen/events/#
func (t Topics) AllOperationEvents() string {
	return t.prefix() + "/events/#"
}

// sanitiseLevel makes s safe to use as a single topic level.
func sanitiseLevel(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
