package platform

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// NewPlatform creates the implementation for the current OS
func NewPlatform() (Platform, error) {
	return newPlatform()
}

// UnsupportedPlatformError represents an error for unsupported platforms
type UnsupportedPlatformError struct {
	OS string
}

func (e *UnsupportedPlatformError) Error() string {
	return "unsupported platform: " + e.OS
}

// applicationName derives a display name from an executable path,
// e.g. `C:\Program Files\Code\Code.exe` -> "Code"
func applicationName(processPath string) string {
	if processPath == "" {
		return ""
	}
	name := processPath
	if i := strings.LastIndexAny(name, `\/`); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// parseMillis parses command output holding an idle time in milliseconds
// (xprintidle)
func parseMillis(out string) (time.Duration, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// parseHIDIdleTime extracts HIDIdleTime (nanoseconds) from `ioreg -c IOHIDSystem` output
func parseHIDIdleTime(out string) (time.Duration, bool) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, `"HIDIdleTime"`) {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		ns, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			continue
		}
		return time.Duration(ns), true
	}
	return 0, false
}
