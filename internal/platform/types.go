package platform

import "time"

// Platform defines the interface for platform-specific operations
type Platform interface {
	// GetActiveWindow returns information about the currently focused window
	GetActiveWindow() (*WindowInfo, error)

	// IdleTime returns how long ago the user last touched mouse or keyboard
	IdleTime() (time.Duration, error)

	// GetSystemInfo returns system information
	GetSystemInfo() (*SystemInfo, error)

	// OpenBrowser opens the default browser with the given URL
	OpenBrowser(url string) error
}

// WindowInfo contains information about a window
type WindowInfo struct {
	Title       string
	Application string
	ProcessID   int
	ProcessPath string
	Timestamp   time.Time
}

// UnknownApplication is reported when the foreground window cannot be resolved
const UnknownApplication = "Unknown"

// SystemInfo contains system information
type SystemInfo struct {
	OS        string
	OSVersion string
	Arch      string
	Hostname  string
}
