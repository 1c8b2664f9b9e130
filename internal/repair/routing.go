package repair

import (
	"context"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/diag"
	"grimm.is/netfix/internal/logging"
	"grimm.is/netfix/internal/netstate"
)

// RoutingRepair installs an IPv4 default route when none exists. The
// gateway comes from settings; without one it falls back to the .1
// address of the first global subnet, the convention nearly every
// consumer router follows.
type RoutingRepair struct {
	sys      netstate.System
	settings config.Settings
	opts     Options
	log      *logging.Logger
	results  []ActionResult
}

func NewRouting(sys netstate.System, settings config.Settings, opts Options, log *logging.Logger) *RoutingRepair {
	return &RoutingRepair{
		sys:      sys,
		settings: settings,
		opts:     opts,
		log:      log.WithComponent("repair-routing"),
	}
}

func (r *RoutingRepair) Name() string { return "routing" }

func (r *RoutingRepair) Results() []ActionResult { return r.results }

func (r *RoutingRepair) Run(ctx context.Context) int {
	r.results = nil

	defaults, err := diag.DefaultRoutes(r.sys.NL)
	if err != nil {
		r.results = record(r.log, r.results, ActionResult{
			Action:  "list-routes",
			Outcome: OutcomeApplyFailed,
			Err:     err,
		})
		return summarize(r.log, r.Name(), r.results)
	}
	if len(defaults) > 0 {
		r.results = record(r.log, r.results, ActionResult{Action: "default-route", Outcome: OutcomeNotNeeded})
		return summarize(r.log, r.Name(), r.results)
	}

	gw := net.ParseIP(r.settings.Repair.Gateway)
	if gw == nil {
		gw = r.deriveGateway()
	}
	if gw == nil {
		r.results = record(r.log, r.results, ActionResult{
			Action:  "default-route",
			Outcome: OutcomeApplyFailed,
			Err:     fmt.Errorf("no gateway configured and none derivable from local subnets"),
		})
		return summarize(r.log, r.Name(), r.results)
	}
	action := "default-route via " + gw.String()

	if r.opts.DryRun {
		r.log.Info("would install default route", "gateway", gw.String())
		r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeSkippedDryRun})
		return summarize(r.log, r.Name(), r.results)
	}

	route := &netlink.Route{Gw: gw}
	if err := r.sys.NL.RouteReplace(route); err != nil {
		r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeApplyFailed, Err: err})
		return summarize(r.log, r.Name(), r.results)
	}

	defaults, err = diag.DefaultRoutes(r.sys.NL)
	if err == nil && len(defaults) > 0 {
		r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeApplied})
		return summarize(r.log, r.Name(), r.results)
	}
	if err == nil {
		err = fmt.Errorf("default route missing after install")
	}

	// Take the route back out so we do not leave a half-installed
	// route nobody asked for.
	outcome := OutcomeRolledBack
	if delErr := r.sys.NL.RouteDel(route); delErr != nil {
		outcome = OutcomeRollbackFailed
		r.log.Warn("cannot remove failed default route", "error", delErr)
	}
	r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: outcome, Err: err})
	return summarize(r.log, r.Name(), r.results)
}

// deriveGateway guesses the gateway as the first host of the first
// global IPv4 subnet on a non-ignored interface.
func (r *RoutingRepair) deriveGateway() net.IP {
	links, err := r.sys.NL.LinkList()
	if err != nil {
		return nil
	}
	for _, link := range links {
		attrs := link.Attrs()
		if attrs.Name == "lo" || diag.Ignored(attrs.Name, r.settings.Ignore) {
			continue
		}
		addrs, err := r.sys.NL.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if addr.IPNet == nil || !addr.IP.IsGlobalUnicast() {
				continue
			}
			base := addr.IPNet.IP.Mask(addr.IPNet.Mask).To4()
			if base == nil {
				continue
			}
			gw := net.IPv4(base[0], base[1], base[2], base[3]+1)
			if gw.Equal(addr.IP) {
				// We hold the .1 ourselves; no guess to make.
				continue
			}
			r.log.Debug("derived gateway from local subnet", "iface", attrs.Name, "gateway", gw.String())
			return gw
		}
	}
	return nil
}
