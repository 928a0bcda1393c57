//go:build darwin

package platform

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const commandTimeout = 2 * time.Second

const frontmostScript = `tell application "System Events"
	set frontApp to first application process whose frontmost is true
	set appName to name of frontApp
	set winTitle to ""
	try
		set winTitle to name of front window of frontApp
	end try
	set appPID to unix id of frontApp
end tell
return appName & "\n" & winTitle & "\n" & appPID`

type darwinImpl struct{}

func newPlatform() (Platform, error) {
	return &darwinImpl{}, nil
}

func (p *darwinImpl) GetActiveWindow() (*WindowInfo, error) {
	out, err := run("osascript", "-e", frontmostScript)
	if err != nil {
		return nil, fmt.Errorf("failed to get active window: %w", err)
	}

	lines := strings.SplitN(out, "\n", 3)
	info := &WindowInfo{
		Application: UnknownApplication,
		Timestamp:   time.Now(),
	}
	if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		info.Application = strings.TrimSpace(lines[0])
	}
	if len(lines) > 1 {
		info.Title = strings.TrimSpace(lines[1])
	}
	if len(lines) > 2 {
		fmt.Sscanf(strings.TrimSpace(lines[2]), "%d", &info.ProcessID)
	}
	return info, nil
}

func (p *darwinImpl) IdleTime() (time.Duration, error) {
	out, err := run("ioreg", "-c", "IOHIDSystem")
	if err != nil {
		return 0, fmt.Errorf("failed to query idle time: %w", err)
	}
	idle, ok := parseHIDIdleTime(out)
	if !ok {
		return 0, fmt.Errorf("HIDIdleTime not found in ioreg output")
	}
	return idle, nil
}

func (p *darwinImpl) GetSystemInfo() (*SystemInfo, error) {
	info := unixSystemInfo()
	if v, err := run("sw_vers", "-productVersion"); err == nil && v != "" {
		info.OSVersion = v
	}
	return info, nil
}

func (p *darwinImpl) OpenBrowser(url string) error {
	cmd := exec.Command("open", url)
	return cmd.Run()
}

func run(name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
