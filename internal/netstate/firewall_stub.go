//go:build !linux
// +build !linux

package netstate

import "fmt"

// DefaultFirewallReader is the default reader (stub).
var DefaultFirewallReader FirewallReader = &NFTFirewallReader{}

// NFTFirewallReader is a stub for non-Linux platforms.
type NFTFirewallReader struct{}

func (r *NFTFirewallReader) Snapshot() (*FirewallSnapshot, error) {
	return nil, fmt.Errorf("nftables not supported on this platform")
}
