//go:build !linux
// +build !linux

package netstate

// KernelRelease returns "" on non-Linux platforms.
func KernelRelease() string {
	return ""
}
