// Package diag implements the read-only diagnostic modules. Each module
// runs a fixed sequence of checks against current system state; every
// check returns 0 (healthy) or 1 (problem) and logs a human-readable
// line at the point of failure. A module's result is the sum of its
// check statuses, so an aggregate of modules can sum their sums.
package diag

import (
	"context"
	"fmt"
	"path/filepath"

	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/logging"
	"grimm.is/netfix/internal/netstate"
)

// Deps bundles the system seams diagnostics read from.
type Deps = netstate.System

// DefaultDeps returns Deps backed by the real system.
func DefaultDeps() Deps {
	return netstate.DefaultSystem()
}

// CheckFunc performs one read-only probe. 0 = healthy, 1 = problem.
type CheckFunc func(ctx context.Context) int

// Check is a named probe within a module.
type Check struct {
	Name string
	Run  CheckFunc
}

// Module is a read-only probe set for one network subsystem.
type Module struct {
	Name   string
	checks []Check
	log    *logging.Logger
}

// Run executes every check in order and returns the sum of their
// statuses. A failing check never aborts the remaining checks.
func (m *Module) Run(ctx context.Context) int {
	issues := 0
	for _, c := range m.checks {
		status := c.Run(ctx)
		if status != 0 {
			m.log.Debug("check failed", "check", c.Name, "status", status)
		}
		issues += status
	}
	if issues == 0 {
		m.log.Info("no issues found")
	} else {
		m.log.Warn("issues found", "count", issues)
	}
	return issues
}

// Checks returns the names of the module's checks, in execution order.
func (m *Module) Checks() []string {
	names := make([]string, len(m.checks))
	for i, c := range m.checks {
		names[i] = c.Name
	}
	return names
}

// Order is the fixed execution order of the aggregate diagnosis. The
// order only matters for log readability; the modules are independent.
var Order = []string{
	"interfaces",
	"routing",
	"dns",
	"connectivity",
	"firewall",
	"netmanager",
}

// New returns the diagnostic module for the given domain.
func New(domain string, deps Deps, settings config.Settings, log *logging.Logger) (*Module, error) {
	switch domain {
	case "interfaces":
		return NewInterfaces(deps, settings, log), nil
	case "routing":
		return NewRouting(deps, settings, log), nil
	case "dns":
		return NewDNS(deps, settings, log), nil
	case "connectivity":
		return NewConnectivity(deps, settings, log), nil
	case "firewall":
		return NewFirewall(deps, settings, log), nil
	case "netmanager":
		return NewNetManager(deps, settings, log), nil
	}
	return nil, fmt.Errorf("no diagnostic module for domain %q", domain)
}

// All returns every diagnostic module in the fixed aggregate order.
func All(deps Deps, settings config.Settings, log *logging.Logger) []*Module {
	modules := make([]*Module, 0, len(Order))
	for _, domain := range Order {
		m, _ := New(domain, deps, settings, log)
		modules = append(modules, m)
	}
	return modules
}

// Ignored reports whether an interface name matches any ignore pattern.
func Ignored(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}
