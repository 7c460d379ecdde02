package orchestrator

import (
	"fmt"
	"strings"
)

// Operation names one of the user-facing workflows.
type Operation string

// Operations.
const (
	OpExport     Operation = "export"
	OpWiFiTest   Operation = "wifi-test"
	OpWiFiEnable Operation = "wifi-enable"
	OpRegenerate Operation = "regenerate"
)

// Operations lists every operation in menu order.
var Operations = []Operation{OpExport, OpWiFiTest, OpWiFiEnable, OpRegenerate}

// Title returns the menu label for op.
func (op Operation) Title() string {
	switch op {
	case OpExport:
		return "Export pairing file"
	case OpWiFiTest:
		return "Test WiFi sync"
	case OpWiFiEnable:
		return "Enable WiFi sync"
	case OpRegenerate:
		return "Generate new pairing file"
	default:
		return string(op)
	}
}

// ParseOperation parses a case-insensitive operation name.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Operations {
		if op == known {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
}
