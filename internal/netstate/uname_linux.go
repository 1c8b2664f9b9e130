//go:build linux
// +build linux

package netstate

import "golang.org/x/sys/unix"

// KernelRelease returns the running kernel release string, or "" when
// uname fails.
func KernelRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uts.Release[:])
}
