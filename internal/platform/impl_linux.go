//go:build linux

package platform

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const commandTimeout = 2 * time.Second

// linuxImpl shells out to X11 helpers: xdotool for the focused window and
// xprintidle for input idle time
type linuxImpl struct{}

func newPlatform() (Platform, error) {
	return &linuxImpl{}, nil
}

func (p *linuxImpl) GetActiveWindow() (*WindowInfo, error) {
	windowID, err := run("xdotool", "getactivewindow")
	if err != nil {
		return nil, fmt.Errorf("failed to get active window: %w", err)
	}
	if windowID == "" {
		return &WindowInfo{Application: UnknownApplication, Timestamp: time.Now()}, nil
	}

	title, _ := run("xdotool", "getwindowname", windowID)

	info := &WindowInfo{
		Title:       title,
		Application: UnknownApplication,
		Timestamp:   time.Now(),
	}

	pidText, err := run("xdotool", "getwindowpid", windowID)
	if err != nil || pidText == "" {
		return info, nil
	}
	pid, err := strconv.Atoi(pidText)
	if err != nil {
		return info, nil
	}
	info.ProcessID = pid

	if path, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid)); err == nil {
		info.ProcessPath = path
	}
	if comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid)); err == nil {
		if name := strings.TrimSpace(string(comm)); name != "" {
			info.Application = name
		}
	} else if name := applicationName(info.ProcessPath); name != "" {
		info.Application = name
	}

	return info, nil
}

func (p *linuxImpl) IdleTime() (time.Duration, error) {
	out, err := run("xprintidle")
	if err != nil {
		return 0, fmt.Errorf("failed to query idle time: %w", err)
	}
	idle, err := parseMillis(out)
	if err != nil {
		return 0, fmt.Errorf("failed to parse xprintidle output %q: %w", out, err)
	}
	return idle, nil
}

func (p *linuxImpl) GetSystemInfo() (*SystemInfo, error) {
	return unixSystemInfo(), nil
}

func (p *linuxImpl) OpenBrowser(url string) error {
	// Try common Linux browser commands
	browsers := []string{"xdg-open", "x-www-browser", "firefox", "google-chrome", "chromium"}
	for _, browser := range browsers {
		cmd := exec.Command(browser, url)
		if err := cmd.Start(); err == nil {
			go cmd.Wait()
			return nil
		}
	}
	return fmt.Errorf("no browser found")
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
