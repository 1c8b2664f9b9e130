package diag

import (
	"context"
	"net"

	"github.com/vishvananda/netlink"

	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/logging"
)

// NewInterfaces builds the link-layer diagnostic module: links exist,
// are up and have carrier, addresses are assigned, loopback works.
func NewInterfaces(deps Deps, settings config.Settings, log *logging.Logger) *Module {
	log = log.WithComponent("interfaces")

	m := &Module{Name: "interfaces", log: log}
	m.checks = []Check{
		{Name: "links-present", Run: func(ctx context.Context) int {
			links, err := deps.NL.LinkList()
			if err != nil {
				log.Warn("cannot list network links", "error", err)
				return 1
			}
			count := 0
			for _, link := range links {
				if link.Attrs().Name != "lo" {
					count++
				}
			}
			if count == 0 {
				log.Warn("no network interfaces found besides loopback")
				return 1
			}
			log.Debug("links present", "count", count)
			return 0
		}},
		{Name: "links-up", Run: func(ctx context.Context) int {
			links, err := deps.NL.LinkList()
			if err != nil {
				log.Warn("cannot list network links", "error", err)
				return 1
			}
			status := 0
			for _, link := range links {
				attrs := link.Attrs()
				if attrs.Name == "lo" || Ignored(attrs.Name, settings.Ignore) {
					continue
				}
				if attrs.Flags&net.FlagUp == 0 {
					log.Warn("interface is administratively down", "iface", attrs.Name)
					status = 1
					continue
				}
				carrier, err := deps.Carrier.HasCarrier(attrs.Name)
				if err != nil {
					// Carrier state unknown for virtual links; rely on oper state.
					carrier = attrs.OperState == netlink.OperUp || attrs.OperState == netlink.OperUnknown
				}
				if !carrier {
					log.Warn("interface has no carrier", "iface", attrs.Name, "oper_state", attrs.OperState.String())
					status = 1
				}
			}
			return status
		}},
		{Name: "addresses", Run: func(ctx context.Context) int {
			links, err := deps.NL.LinkList()
			if err != nil {
				log.Warn("cannot list network links", "error", err)
				return 1
			}
			for _, link := range links {
				attrs := link.Attrs()
				if attrs.Name == "lo" || Ignored(attrs.Name, settings.Ignore) {
					continue
				}
				addrs, err := deps.NL.AddrList(link, netlink.FAMILY_ALL)
				if err != nil {
					continue
				}
				for _, addr := range addrs {
					if addr.IP.IsGlobalUnicast() {
						log.Debug("global address present", "iface", attrs.Name, "addr", addr.IPNet.String())
						return 0
					}
				}
			}
			log.Warn("no interface has a global unicast address")
			return 1
		}},
		{Name: "loopback", Run: func(ctx context.Context) int {
			lo, err := deps.NL.LinkByName("lo")
			if err != nil {
				log.Warn("loopback interface missing", "error", err)
				return 1
			}
			if lo.Attrs().Flags&net.FlagUp == 0 {
				log.Warn("loopback interface is down")
				return 1
			}
			return 0
		}},
	}
	return m
}
