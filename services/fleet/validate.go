package fleet

import (
	"strconv"
	"strings"
)

// IsValidIPv4 reports whether s (after trimming) is four dot-separated
// decimal octets each in [0,255].
func IsValidIPv4(s string) bool {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}

// ParseMachineStatus normalizes running/stopped case-insensitively.
func ParseMachineStatus(raw string) (MachineStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "running":
		return StatusRunning, nil
	case "stopped":
		return StatusStopped, nil
	default:
		return "", invalid(CodeInvalidStatus, "machineStatus must be Running or Stopped, got %q", raw)
	}
}

// ParseVMType normalizes default/demo case-insensitively. Empty means Default.
func ParseVMType(raw string) (VMType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "default":
		return VMTypeDefault, nil
	case "demo":
		return VMTypeDemo, nil
	default:
		return "", invalid(CodeInvalidType, "vmType must be Default or Demo, got %q", raw)
	}
}
