package diag

import (
	"context"
	"net"

	"github.com/vishvananda/netlink"

	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/logging"
)

// isDefaultRoute reports whether r matches 0.0.0.0/0.
func isDefaultRoute(r netlink.Route) bool {
	if r.Dst == nil {
		return true
	}
	ones, _ := r.Dst.Mask.Size()
	return ones == 0 && r.Dst.IP.IsUnspecified()
}

// DefaultRoutes lists the IPv4 default routes.
func DefaultRoutes(nl interface {
	RouteList(link netlink.Link, family int) ([]netlink.Route, error)
}) ([]netlink.Route, error) {
	routes, err := nl.RouteList(nil, netlink.FAMILY_V4)
	if err != nil {
		return nil, err
	}
	var defaults []netlink.Route
	for _, r := range routes {
		if isDefaultRoute(r) {
			defaults = append(defaults, r)
		}
	}
	return defaults, nil
}

// GatewayOnLink reports whether gw falls inside a subnet assigned to
// any local interface.
func GatewayOnLink(deps Deps, gw net.IP) bool {
	links, err := deps.NL.LinkList()
	if err != nil {
		return false
	}
	for _, link := range links {
		addrs, err := deps.NL.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if addr.IPNet != nil && addr.IPNet.Contains(gw) {
				return true
			}
		}
	}
	return false
}

// NewRouting builds the routing diagnostic module: a default route
// exists, its gateway is on-link, and there are no conflicting
// duplicates.
func NewRouting(deps Deps, settings config.Settings, log *logging.Logger) *Module {
	log = log.WithComponent("routing")

	m := &Module{Name: "routing", log: log}
	m.checks = []Check{
		{Name: "default-route", Run: func(ctx context.Context) int {
			// ip_forward state is informational only.
			if v, err := deps.Sys.ReadSysctl("net.ipv4.ip_forward"); err == nil {
				log.Debug("ip_forward", "value", v)
			}

			defaults, err := DefaultRoutes(deps.NL)
			if err != nil {
				log.Warn("cannot list routes", "error", err)
				return 1
			}
			if len(defaults) == 0 {
				log.Warn("no default route configured")
				return 1
			}
			log.Debug("default route present", "gateway", defaults[0].Gw)
			return 0
		}},
		{Name: "gateway-on-link", Run: func(ctx context.Context) int {
			defaults, err := DefaultRoutes(deps.NL)
			if err != nil || len(defaults) == 0 {
				// Reported by default-route; nothing to verify here.
				return 0
			}
			gw := defaults[0].Gw
			if gw == nil {
				// Point-to-point default route without a gateway.
				return 0
			}
			if !GatewayOnLink(deps, gw) {
				log.Warn("default gateway is not on any local subnet", "gateway", gw)
				return 1
			}
			return 0
		}},
		{Name: "duplicate-defaults", Run: func(ctx context.Context) int {
			defaults, err := DefaultRoutes(deps.NL)
			if err != nil {
				return 0
			}
			byPriority := make(map[int]int)
			for _, r := range defaults {
				byPriority[r.Priority]++
			}
			for prio, count := range byPriority {
				if count > 1 {
					log.Warn("conflicting default routes with equal priority", "priority", prio, "count", count)
					return 1
				}
			}
			return 0
		}},
	}
	return m
}
