// Package doctor drives a full run: diagnose everything, decide whether
// to repair, repair, and re-verify connectivity. It owns the exit code.
package doctor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"grimm.is/netfix/internal/backup"
	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/diag"
	"grimm.is/netfix/internal/logging"
	"grimm.is/netfix/internal/netstate"
	"grimm.is/netfix/internal/repair"
)

// Exit codes. Privilege refusal is distinct so scripts can tell "run me
// as root" apart from "your network is broken".
const (
	ExitOK        = 0
	ExitIssues    = 1
	ExitPrivilege = 2
)

// ErrNotElevated is returned when a repair run is attempted without
// root. Nothing is written before this check passes.
var ErrNotElevated = errors.New("repairs require elevation, re-run as root")

// Confirmer asks the operator whether to go ahead with repairs. A seam
// so tests do not drive a terminal UI.
type Confirmer interface {
	Confirm(title string) (bool, error)
}

// Doctor runs the diagnose / repair / verify sequence.
type Doctor struct {
	sys      netstate.System
	store    *backup.Store
	settings config.Settings
	run      config.RunConfig
	log      *logging.Logger
	runID    string

	// Confirm is consulted on the interactive path. Replaceable in
	// tests; defaults to the terminal prompt.
	Confirm Confirmer
	// Elevated is the privilege probe, replaceable in tests.
	Elevated func() bool
}

func New(sys netstate.System, store *backup.Store, settings config.Settings, run config.RunConfig, log *logging.Logger) *Doctor {
	return &Doctor{
		sys:      sys,
		store:    store,
		settings: settings,
		run:      run,
		log:      log.WithComponent("doctor"),
		runID:    uuid.NewString()[:8],
		Confirm:  TerminalConfirmer{},
		Elevated: func() bool { return netstate.Elevated() },
	}
}

// RunID identifies this run in logs and backup labels.
func (d *Doctor) RunID() string { return d.runID }

// Run executes the state machine for the given command and returns the
// process exit code.
func (d *Doctor) Run(ctx context.Context) int {
	d.log.Info("starting run", "run_id", d.runID, "command", string(d.run.Command), "dry_run", d.run.DryRun)
	if rel := netstate.KernelRelease(); rel != "" {
		d.log.Debug("kernel", "release", rel)
	}

	if d.run.Command.IsRepair() {
		if err := d.gate(); err != nil {
			d.log.Error("refusing to repair", "error", err)
			return ExitPrivilege
		}
	}

	if domain := d.run.Command.Domain(); domain != "" {
		return d.runDomain(ctx, domain)
	}

	issues := d.Diagnose(ctx)

	if !d.shouldRepair(issues) {
		d.log.Info("diagnosis complete, no repairs attempted", "run_id", d.runID, "issues", issues)
		return exitFor(issues)
	}

	if err := d.gate(); err != nil {
		d.log.Error("refusing to repair", "error", err)
		return ExitPrivilege
	}
	d.Repair(ctx)

	final := d.FinalVerify(ctx)
	d.log.Info("run complete", "run_id", d.runID, "remaining_issues", final)
	return exitFor(final)
}

// runDomain handles the single-domain commands (diagnose-dns,
// repair-routing, ...). Repairs of one domain still get the final
// verification pass.
func (d *Doctor) runDomain(ctx context.Context, domain string) int {
	if d.run.Command.IsRepair() {
		m, err := repair.New(domain, d.sys, d.store, d.settings, d.repairOptions(), d.log)
		if err != nil {
			d.log.Error("unknown repair domain", "domain", domain, "error", err)
			return ExitIssues
		}
		m.Run(ctx)
		final := d.FinalVerify(ctx)
		return exitFor(final)
	}

	m, err := diag.New(domain, d.sys, d.settings, d.log)
	if err != nil {
		d.log.Error("unknown diagnostic domain", "domain", domain, "error", err)
		return ExitIssues
	}
	return exitFor(m.Run(ctx))
}

// Diagnose runs every diagnostic module in order and returns the
// aggregate issue count.
func (d *Doctor) Diagnose(ctx context.Context) int {
	issues := 0
	for _, m := range diag.All(d.sys, d.settings, d.log) {
		issues += m.Run(ctx)
	}
	if issues == 0 {
		d.log.Info("all diagnostics passed", "run_id", d.runID)
	} else {
		d.log.Warn("diagnostics found problems", "run_id", d.runID, "issues", issues)
	}
	return issues
}

// Repair runs every repair module in order and returns the count of
// actions that did not stick.
func (d *Doctor) Repair(ctx context.Context) int {
	issues := 0
	for _, m := range repair.All(d.sys, d.store, d.settings, d.repairOptions(), d.log) {
		issues += m.Run(ctx)
	}
	return issues
}

// FinalVerify re-checks outbound connectivity and name resolution once.
// No retries; the result is the run's verdict.
func (d *Doctor) FinalVerify(ctx context.Context) int {
	log := d.log.WithComponent("verify")
	issues := 0

	probe := d.settings.Probe
	stats, err := d.sys.Ping.Ping(ctx, probe.PingAddress, probe.PingCount, probe.PingTimeout())
	if err != nil || stats.Received == 0 {
		log.Warn("still no outbound connectivity", "addr", probe.PingAddress, "error", err)
		issues++
	} else {
		log.Info("outbound connectivity verified", "addr", probe.PingAddress, "received", stats.Received)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, probe.DNSTimeout())
	defer cancel()
	if _, err := d.sys.Res.LookupHost(lookupCtx, probe.ResolveHost); err != nil {
		log.Warn("name resolution still failing", "host", probe.ResolveHost, "error", err)
		issues++
	} else {
		log.Info("name resolution verified", "host", probe.ResolveHost)
	}
	return issues
}

// shouldRepair decides the Diagnose -> Repair transition.
func (d *Doctor) shouldRepair(issues int) bool {
	if d.run.Command.IsRepair() {
		return true
	}
	if issues == 0 {
		return false
	}
	if d.run.AutoRepair {
		d.log.Info("auto-repair enabled, proceeding")
		return true
	}
	if d.run.Interactive {
		ok, err := d.Confirm.Confirm(fmt.Sprintf("Found %d issue(s). Attempt repairs?", issues))
		if err != nil {
			d.log.Warn("prompt failed, not repairing", "error", err)
			return false
		}
		return ok
	}
	return false
}

// gate refuses repairs without elevation. Dry-run is exempt since it
// writes nothing.
func (d *Doctor) gate() error {
	if d.run.DryRun {
		return nil
	}
	if !d.Elevated() {
		return ErrNotElevated
	}
	return nil
}

func (d *Doctor) repairOptions() repair.Options {
	return repair.Options{DryRun: d.run.DryRun, RunID: d.runID}
}

func exitFor(issues int) int {
	if issues == 0 {
		return ExitOK
	}
	return ExitIssues
}
