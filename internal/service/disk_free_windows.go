//go:build windows

package service

import (
	"os"

	"golang.org/x/sys/windows"
)

// freeDiskSpace returns the bytes available to the caller at path,
// or 0 when path is not a readable directory.
func freeDiskSpace(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return 0
	}

	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0
	}

	var free, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(ptr, &free, &total, &totalFree); err != nil {
		return 0
	}
	return int64(free)
}
