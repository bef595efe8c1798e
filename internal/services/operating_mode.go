package services

import (
	"fmt"
	"strings"
)

// OperatingMode decides whether connections may be created or updated through the service.
type OperatingMode uint8

const (
	// ModeReadOnly rejects create and update; connections come from configuration.
	ModeReadOnly OperatingMode = iota
	// ModeManaged lets users create and update persisted connections.
	ModeManaged
)

func (m OperatingMode) String() string {
	switch m {
	case ModeReadOnly:
		return "read_only"
	case ModeManaged:
		return "managed"
	default:
		return fmt.Sprintf("OperatingMode(%d)", uint8(m))
	}
}

// ParseOperatingMode maps a configuration value onto an OperatingMode. Empty means read-only.
func ParseOperatingMode(value string) (OperatingMode, error) {
	normalized := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case "", "read_only", "readonly":
		return ModeReadOnly, nil
	case "managed":
		return ModeManaged, nil
	default:
		return ModeReadOnly, fmt.Errorf("unsupported registry mode %q", value)
	}
}
