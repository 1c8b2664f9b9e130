// Package netstate abstracts every touchpoint with the running system:
// netlink, sysctl, files, external commands, DNS, and ICMP. Diagnostics
// and repairs talk to these interfaces only, so tests mock them and
// dry-run mode swaps the mutating implementations for recorders.
package netstate

import (
	"context"
	"os"
	"time"

	"github.com/vishvananda/netlink"
)

// Netlinker abstracts the netlink interactions used by diagnostics and
// repairs. Kept to the subset the toolkit needs.
type Netlinker interface {
	LinkByName(name string) (netlink.Link, error)
	LinkList() ([]netlink.Link, error)
	LinkSetUp(link netlink.Link) error

	AddrList(link netlink.Link, family int) ([]netlink.Addr, error)

	RouteList(link netlink.Link, family int) ([]netlink.Route, error)
	RouteReplace(route *netlink.Route) error
	RouteDel(route *netlink.Route) error
}

// SystemController abstracts sysctl and config-file access. Repairs
// route all file mutations through it so dry-run can intercept them.
type SystemController interface {
	ReadSysctl(path string) (string, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	Remove(path string) error
	Stat(path string) (os.FileInfo, error)
	IsNotExist(err error) bool
}

// CommandExecutor abstracts executing external commands. Only service
// management (systemctl, nmcli) goes through it; everything else uses
// native APIs.
type CommandExecutor interface {
	RunCommand(name string, arg ...string) (string, error)
}

// Resolver performs hostname lookups through the system resolver.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// PingStats summarizes one bounded ICMP probe.
type PingStats struct {
	Sent     int
	Received int
	AvgRtt   time.Duration
}

// Pinger sends a bounded number of ICMP echo requests.
type Pinger interface {
	Ping(ctx context.Context, addr string, count int, timeout time.Duration) (*PingStats, error)
}

// Dialer attempts a TCP connection, used as a fallback reachability
// signal where ICMP is filtered.
type Dialer interface {
	DialTimeout(network, addr string, timeout time.Duration) error
}

// DNSQuerier issues a direct A query against a specific nameserver,
// bypassing the system resolver.
type DNSQuerier interface {
	// Query returns the answer addresses and the response code. A
	// non-nil error means the server did not answer at all.
	Query(ctx context.Context, server, name string, timeout time.Duration) (addrs []string, rcode int, err error)
}

// CarrierReader reports physical link state for an interface.
type CarrierReader interface {
	HasCarrier(iface string) (bool, error)
}

// FirewallChain is one base chain in the nftables ruleset snapshot.
type FirewallChain struct {
	Table      string
	Family     string
	Name       string
	InputHook  bool
	PolicyDrop bool
	RuleCount  int
}

// FirewallSnapshot is a read-only view of the nftables ruleset.
type FirewallSnapshot struct {
	Tables int
	Chains []FirewallChain
}

// FirewallReader reads the current nftables ruleset.
type FirewallReader interface {
	Snapshot() (*FirewallSnapshot, error)
}

// Elevated reports whether the effective user can mutate system state.
// A function variable so tests can fake elevation.
var Elevated = func() bool {
	return os.Geteuid() == 0
}

// System bundles every seam. Diagnostics and repairs receive one of
// these instead of reaching for package-level defaults.
type System struct {
	NL      Netlinker
	Sys     SystemController
	Cmd     CommandExecutor
	Res     Resolver
	Ping    Pinger
	Dial    Dialer
	DNS     DNSQuerier
	FW      FirewallReader
	Carrier CarrierReader
}

// DefaultSystem returns a System backed by the real implementations.
func DefaultSystem() System {
	return System{
		NL:      DefaultNetlinker,
		Sys:     DefaultSystemController,
		Cmd:     DefaultCommandExecutor,
		Res:     DefaultResolver,
		Ping:    DefaultPinger,
		Dial:    DefaultDialer,
		DNS:     DefaultDNSQuerier,
		FW:      DefaultFirewallReader,
		Carrier: DefaultCarrierReader,
	}
}
