//go:build !linux
// +build !linux

package netstate

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// DefaultNetlinker is the default RealNetlinker instance (stub).
var DefaultNetlinker Netlinker = &RealNetlinker{}

// RealNetlinker is a stub implementation of Netlinker for non-Linux
// platforms. Diagnostics report the platform as unsupported.
type RealNetlinker struct{}

func (r *RealNetlinker) LinkByName(name string) (netlink.Link, error) {
	return nil, fmt.Errorf("netlink not supported on this platform")
}

func (r *RealNetlinker) LinkList() ([]netlink.Link, error) {
	return nil, fmt.Errorf("netlink not supported on this platform")
}

func (r *RealNetlinker) LinkSetUp(link netlink.Link) error {
	return fmt.Errorf("netlink not supported on this platform")
}

func (r *RealNetlinker) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	return nil, fmt.Errorf("netlink not supported on this platform")
}

func (r *RealNetlinker) RouteList(link netlink.Link, family int) ([]netlink.Route, error) {
	return nil, fmt.Errorf("netlink not supported on this platform")
}

func (r *RealNetlinker) RouteReplace(route *netlink.Route) error {
	return fmt.Errorf("netlink not supported on this platform")
}

func (r *RealNetlinker) RouteDel(route *netlink.Route) error {
	return fmt.Errorf("netlink not supported on this platform")
}
