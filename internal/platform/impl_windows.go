//go:build windows

package platform

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

type windowsImpl struct{}

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procGetWindowTextW      = user32.NewProc("GetWindowTextW")
	procGetWindowTextLength = user32.NewProc("GetWindowTextLengthW")
	procGetLastInputInfo    = user32.NewProc("GetLastInputInfo")
	procGetTickCount        = kernel32.NewProc("GetTickCount")
)

// lastInputInfo mirrors the Win32 LASTINPUTINFO struct
type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

func newPlatform() (Platform, error) {
	return &windowsImpl{}, nil
}

func (p *windowsImpl) GetActiveWindow() (*WindowInfo, error) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return nil, fmt.Errorf("failed to get foreground window")
	}

	info := &WindowInfo{
		Application: UnknownApplication,
		Timestamp:   time.Now(),
	}

	length, _, _ := procGetWindowTextLength.Call(uintptr(hwnd))
	if length > 0 {
		buf := make([]uint16, length+1)
		procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
		info.Title = windows.UTF16ToString(buf)
	}

	var processID uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &processID); err != nil || processID == 0 {
		return info, nil
	}
	info.ProcessID = int(processID)
	info.ProcessPath = processPath(processID)
	if name := applicationName(info.ProcessPath); name != "" {
		info.Application = name
	}

	return info, nil
}

func processPath(processID uint32) string {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, processID)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(handle)

	buf := make([]uint16, windows.MAX_LONG_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(handle, 0, &buf[0], &size); err != nil {
		return ""
	}
	return windows.UTF16ToString(buf[:size])
}

func (p *windowsImpl) IdleTime() (time.Duration, error) {
	lii := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	ret, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&lii)))
	if ret == 0 {
		return 0, fmt.Errorf("GetLastInputInfo failed: %w", err)
	}

	now, _, _ := procGetTickCount.Call()
	// Both values are 32-bit tick counts; unsigned subtraction handles wraparound
	idleMillis := uint32(now) - lii.dwTime
	return time.Duration(idleMillis) * time.Millisecond, nil
}

func (p *windowsImpl) GetSystemInfo() (*SystemInfo, error) {
	hostname, _ := os.Hostname()
	v := windows.RtlGetVersion()
	return &SystemInfo{
		OS:        "windows",
		OSVersion: fmt.Sprintf("%d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber),
		Arch:      runtime.GOARCH,
		Hostname:  hostname,
	}, nil
}

func (p *windowsImpl) OpenBrowser(url string) error {
	// The empty string after "start" is the window title argument of cmd.exe
	cmd := exec.Command("cmd", "/c", "start", "", url)
	return cmd.Start()
}
