package repair

import (
	"context"
	"fmt"
	"net"

	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/diag"
	"grimm.is/netfix/internal/logging"
	"grimm.is/netfix/internal/netstate"
)

// InterfacesRepair brings administratively-down links back up. Loopback
// is included; ignored interfaces are left alone.
type InterfacesRepair struct {
	sys      netstate.System
	settings config.Settings
	opts     Options
	log      *logging.Logger
	results  []ActionResult
}

func NewInterfaces(sys netstate.System, settings config.Settings, opts Options, log *logging.Logger) *InterfacesRepair {
	return &InterfacesRepair{
		sys:      sys,
		settings: settings,
		opts:     opts,
		log:      log.WithComponent("repair-interfaces"),
	}
}

func (r *InterfacesRepair) Name() string { return "interfaces" }

func (r *InterfacesRepair) Results() []ActionResult { return r.results }

func (r *InterfacesRepair) Run(ctx context.Context) int {
	r.results = nil

	links, err := r.sys.NL.LinkList()
	if err != nil {
		r.results = record(r.log, r.results, ActionResult{
			Action:  "list-links",
			Outcome: OutcomeApplyFailed,
			Err:     err,
		})
		return summarize(r.log, r.Name(), r.results)
	}

	brought := 0
	for _, link := range links {
		attrs := link.Attrs()
		if attrs.Name != "lo" && diag.Ignored(attrs.Name, r.settings.Ignore) {
			continue
		}
		if attrs.Flags&net.FlagUp != 0 {
			continue
		}
		brought++
		action := "link-up " + attrs.Name

		if r.opts.DryRun {
			r.log.Info("would bring interface up", "iface", attrs.Name)
			r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeSkippedDryRun})
			continue
		}

		if err := r.sys.NL.LinkSetUp(link); err != nil {
			r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeApplyFailed, Err: err})
			continue
		}

		// Re-probe: the admin flag must be set on a fresh read. There
		// is no prior state to restore when it is not, the link was
		// already down.
		fresh, err := r.sys.NL.LinkByName(attrs.Name)
		if err != nil || fresh.Attrs().Flags&net.FlagUp == 0 {
			if err == nil {
				err = fmt.Errorf("interface %s still down after bringing it up", attrs.Name)
			}
			r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeVerifyFailed, Err: err})
			continue
		}
		r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeApplied})
	}

	if brought == 0 {
		r.results = record(r.log, r.results, ActionResult{Action: "links-up", Outcome: OutcomeNotNeeded})
	}
	return summarize(r.log, r.Name(), r.results)
}
