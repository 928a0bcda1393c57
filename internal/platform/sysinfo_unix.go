//go:build linux || darwin

package platform

import (
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

func unixSystemInfo() *SystemInfo {
	hostname, _ := os.Hostname()
	info := &SystemInfo{
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		Hostname: hostname,
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		info.OSVersion = unix.ByteSliceToString(uts.Release[:])
	}
	return info
}
