//go:build windows

package privilege

import "golang.org/x/sys/windows"

// IsElevated reports whether the process token is elevated (UAC "Run as
// administrator" or an admin account with UAC disabled).
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
