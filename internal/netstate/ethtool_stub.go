//go:build !linux
// +build !linux

package netstate

import "fmt"

// DefaultCarrierReader is the default carrier reader (stub).
var DefaultCarrierReader CarrierReader = &EthtoolCarrierReader{}

// EthtoolCarrierReader is a stub for non-Linux platforms.
type EthtoolCarrierReader struct{}

func (e *EthtoolCarrierReader) HasCarrier(iface string) (bool, error) {
	return false, fmt.Errorf("ethtool not supported on this platform")
}
