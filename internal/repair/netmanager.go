package repair

import (
	"context"
	"fmt"
	"strings"

	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/diag"
	"grimm.is/netfix/internal/logging"
	"grimm.is/netfix/internal/netstate"
)

// NetManagerRepair restarts the network manager service and re-enables
// NetworkManager's networking toggle. Service operations have no
// rollback; a failed restart is reported and left for the operator.
type NetManagerRepair struct {
	sys      netstate.System
	settings config.Settings
	opts     Options
	log      *logging.Logger
	results  []ActionResult
}

func NewNetManager(sys netstate.System, settings config.Settings, opts Options, log *logging.Logger) *NetManagerRepair {
	return &NetManagerRepair{
		sys:      sys,
		settings: settings,
		opts:     opts,
		log:      log.WithComponent("repair-netmanager"),
	}
}

func (r *NetManagerRepair) Name() string { return "netmanager" }

func (r *NetManagerRepair) Results() []ActionResult { return r.results }

func (r *NetManagerRepair) Run(ctx context.Context) int {
	r.results = nil

	nmActive := diag.ServiceActive(r.sys.Cmd, diag.UnitNetworkManager)
	networkdActive := diag.ServiceActive(r.sys.Cmd, diag.UnitNetworkd)

	unit := diag.UnitNetworkManager
	switch {
	case nmActive:
		// restart NetworkManager
	case networkdActive:
		unit = diag.UnitNetworkd
	default:
		// Neither manager is running; starting NetworkManager is the
		// best guess on a desktop system.
		r.log.Warn("no network manager active, starting NetworkManager")
	}

	r.restartUnit(unit)

	if nmActive && !r.networkingEnabled() {
		r.enableNetworking()
	}

	return summarize(r.log, r.Name(), r.results)
}

func (r *NetManagerRepair) restartUnit(unit string) {
	action := "restart " + unit

	if r.opts.DryRun {
		r.log.Info("would restart service", "unit", unit)
		r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeSkippedDryRun})
		return
	}

	if _, err := r.sys.Cmd.RunCommand("systemctl", "restart", unit); err != nil {
		r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeApplyFailed, Err: err})
		return
	}
	if !diag.ServiceActive(r.sys.Cmd, unit) {
		err := fmt.Errorf("%s not active after restart", unit)
		r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeVerifyFailed, Err: err})
		return
	}
	r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeApplied})
}

func (r *NetManagerRepair) enableNetworking() {
	action := "nmcli networking on"

	if r.opts.DryRun {
		r.log.Info("would enable NetworkManager networking")
		r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeSkippedDryRun})
		return
	}

	if _, err := r.sys.Cmd.RunCommand("nmcli", "networking", "on"); err != nil {
		r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeApplyFailed, Err: err})
		return
	}
	if !r.networkingEnabled() {
		err := fmt.Errorf("networking still disabled after enabling")
		r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeVerifyFailed, Err: err})
		return
	}
	r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeApplied})
}

func (r *NetManagerRepair) networkingEnabled() bool {
	out, err := r.sys.Cmd.RunCommand("nmcli", "networking")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "enabled"
}
