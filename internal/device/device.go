package device

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"Mansoor88-6/pondok-tracker/internal/platform"

	"github.com/google/uuid"
)

// Identity is how this installation introduces itself to the remote API
type Identity struct {
	ID        string
	Name      string
	OS        string
	OSVersion string
}

// Resolver works out the device identity from config, the OS and, as a
// last resort, a random UUID
type Resolver struct {
	platform platform.Platform
	readFile func(string) ([]byte, error)
	command  func(name string, args ...string) ([]byte, error)
}

// NewResolver creates a resolver backed by the given platform
func NewResolver(p platform.Platform) *Resolver {
	return &Resolver{
		platform: p,
		readFile: os.ReadFile,
		command: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).Output()
		},
	}
}

// Resolve returns the device identity. Configured values win over detected ones.
func (r *Resolver) Resolve(configuredID, configuredName string) Identity {
	id := Identity{
		ID:   configuredID,
		Name: configuredName,
		OS:   runtime.GOOS,
	}

	if info, err := r.platform.GetSystemInfo(); err == nil {
		id.OS = info.OS
		id.OSVersion = info.OSVersion
		if id.Name == "" {
			id.Name = info.Hostname
		}
	}
	if id.Name == "" {
		id.Name = "Unknown"
	}

	if id.ID == "" {
		if platformID, err := r.platformDeviceID(); err == nil && platformID != "" {
			id.ID = platformID
		} else {
			id.ID = uuid.New().String()
		}
	}

	return id
}

// platformDeviceID gets a stable, OS-provided machine identifier
func (r *Resolver) platformDeviceID() (string, error) {
	switch runtime.GOOS {
	case "windows":
		return r.firstLine([]string{"UUID"}, "wmic", "csproduct", "get", "uuid")
	case "darwin":
		out, err := r.command("system_profiler", "SPHardwareDataType")
		if err != nil {
			return "", fmt.Errorf("failed to read hardware info: %w", err)
		}
		for _, line := range strings.Split(string(out), "\n") {
			if strings.Contains(line, "Hardware UUID") {
				if parts := strings.SplitN(line, ":", 2); len(parts) == 2 {
					return strings.TrimSpace(parts[1]), nil
				}
			}
		}
		return "", fmt.Errorf("hardware UUID not found")
	case "linux":
		for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
			if data, err := r.readFile(path); err == nil {
				if id := strings.TrimSpace(string(data)); id != "" {
					return id, nil
				}
			}
		}
		return "", fmt.Errorf("machine-id not found")
	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// firstLine runs a command and returns the first output line that is not a header
func (r *Resolver) firstLine(headers []string, name string, args ...string) (string, error) {
	out, err := r.command(name, args...)
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w", name, err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || contains(headers, line) {
			continue
		}
		return line, nil
	}
	return "", fmt.Errorf("no output from %s", name)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
