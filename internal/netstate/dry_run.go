package netstate

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/vishvananda/netlink"
)

// DryRunNetlinker passes reads through to an inner Netlinker and records
// mutations instead of performing them.
type DryRunNetlinker struct {
	Inner Netlinker

	mu  sync.Mutex
	Ops []string
}

// NewDryRunNetlinker creates a dry-run wrapper around inner.
func NewDryRunNetlinker(inner Netlinker) *DryRunNetlinker {
	return &DryRunNetlinker{Inner: inner}
}

func (n *DryRunNetlinker) log(op string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Ops = append(n.Ops, "ip "+op)
}

func (n *DryRunNetlinker) LinkByName(name string) (netlink.Link, error) {
	return n.Inner.LinkByName(name)
}

func (n *DryRunNetlinker) LinkList() ([]netlink.Link, error) {
	return n.Inner.LinkList()
}

func (n *DryRunNetlinker) LinkSetUp(link netlink.Link) error {
	n.log(fmt.Sprintf("link set %s up", link.Attrs().Name))
	return nil
}

func (n *DryRunNetlinker) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	return n.Inner.AddrList(link, family)
}

func (n *DryRunNetlinker) RouteList(link netlink.Link, family int) ([]netlink.Route, error) {
	return n.Inner.RouteList(link, family)
}

func (n *DryRunNetlinker) RouteReplace(route *netlink.Route) error {
	n.log(fmt.Sprintf("route replace %s", route.String()))
	return nil
}

func (n *DryRunNetlinker) RouteDel(route *netlink.Route) error {
	n.log(fmt.Sprintf("route del %s", route.String()))
	return nil
}

// DryRunSystemController passes reads through and records writes.
type DryRunSystemController struct {
	Inner SystemController

	mu     sync.Mutex
	Writes []string
}

// NewDryRunSystemController creates a dry-run wrapper around inner.
func NewDryRunSystemController(inner SystemController) *DryRunSystemController {
	return &DryRunSystemController{Inner: inner}
}

func (s *DryRunSystemController) record(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Writes = append(s.Writes, op)
}

func (s *DryRunSystemController) ReadSysctl(path string) (string, error) {
	return s.Inner.ReadSysctl(path)
}

func (s *DryRunSystemController) ReadFile(path string) ([]byte, error) {
	return s.Inner.ReadFile(path)
}

func (s *DryRunSystemController) WriteFile(path string, data []byte, perm os.FileMode) error {
	s.record(fmt.Sprintf("write %s (%d bytes)", path, len(data)))
	return nil
}

func (s *DryRunSystemController) Remove(path string) error {
	s.record("rm " + path)
	return nil
}

func (s *DryRunSystemController) Stat(path string) (os.FileInfo, error) {
	return s.Inner.Stat(path)
}

func (s *DryRunSystemController) IsNotExist(err error) bool {
	return s.Inner.IsNotExist(err)
}

// DryRunExecutor forwards read-only state queries to an inner executor and
// records every other command instead of executing it.
type DryRunExecutor struct {
	Inner CommandExecutor

	mu       sync.Mutex
	Commands []string
}

// NewDryRunExecutor creates a dry-run wrapper around inner.
func NewDryRunExecutor(inner CommandExecutor) *DryRunExecutor {
	return &DryRunExecutor{Inner: inner}
}

// readOnlyCommand reports whether the command only inspects state.
func readOnlyCommand(name string, arg []string) bool {
	switch name {
	case "systemctl":
		return len(arg) >= 1 && arg[0] == "is-active"
	case "nmcli":
		// Bare "nmcli networking" prints the state; anything longer mutates.
		return len(arg) == 1 && arg[0] == "networking"
	}
	return false
}

// RunCommand executes read-only queries and records everything else.
func (e *DryRunExecutor) RunCommand(name string, arg ...string) (string, error) {
	if readOnlyCommand(name, arg) {
		return e.Inner.RunCommand(name, arg...)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = append(e.Commands, fmt.Sprintf("%s %s", name, strings.Join(arg, " ")))
	return "", nil
}

// DryRunRecorder exposes the mutations a dry run would have performed.
type DryRunRecorder struct {
	NL  *DryRunNetlinker
	Sys *DryRunSystemController
	Cmd *DryRunExecutor
}

// Ops returns every recorded mutation in seam order.
func (r *DryRunRecorder) Ops() []string {
	var ops []string
	r.NL.mu.Lock()
	ops = append(ops, r.NL.Ops...)
	r.NL.mu.Unlock()
	r.Sys.mu.Lock()
	ops = append(ops, r.Sys.Writes...)
	r.Sys.mu.Unlock()
	r.Cmd.mu.Lock()
	ops = append(ops, r.Cmd.Commands...)
	r.Cmd.mu.Unlock()
	return ops
}

// WithDryRun wraps the mutating seams of sys so no change ever reaches the
// host, and returns a recorder holding what would have been done.
func WithDryRun(sys System) (System, *DryRunRecorder) {
	rec := &DryRunRecorder{
		NL:  NewDryRunNetlinker(sys.NL),
		Sys: NewDryRunSystemController(sys.Sys),
		Cmd: NewDryRunExecutor(sys.Cmd),
	}
	sys.NL = rec.NL
	sys.Sys = rec.Sys
	sys.Cmd = rec.Cmd
	return sys, rec
}
