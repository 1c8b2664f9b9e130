// Package repair applies targeted fixes for problems the diagnostic
// modules detect. Every file-modifying action backs the file up first,
// verifies after applying, and rolls the backup in when verification
// fails. State-changing actions (links, routes, services) verify by
// re-probing and restore the prior state where one exists.
package repair

import (
	"context"
	"fmt"

	"grimm.is/netfix/internal/backup"
	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/logging"
	"grimm.is/netfix/internal/netstate"
)

// Outcome classifies how a single repair action ended.
type Outcome string

const (
	// OutcomeApplied means the action ran and verification passed.
	OutcomeApplied Outcome = "applied"
	// OutcomeNotNeeded means the probe found nothing to fix.
	OutcomeNotNeeded Outcome = "not-needed"
	// OutcomeSkippedDryRun means the action was planned but not run.
	OutcomeSkippedDryRun Outcome = "skipped-dry-run"
	// OutcomeBackupFailed means the pre-apply backup could not be
	// written, so the action never applied.
	OutcomeBackupFailed Outcome = "backup-failed"
	// OutcomeApplyFailed means the change itself failed.
	OutcomeApplyFailed Outcome = "apply-failed"
	// OutcomeVerifyFailed means the change applied but the re-probe
	// still failed and no rollback was possible.
	OutcomeVerifyFailed Outcome = "verify-failed"
	// OutcomeRolledBack means verification failed and the prior state
	// was restored.
	OutcomeRolledBack Outcome = "rolled-back"
	// OutcomeRollbackFailed means verification failed and restoring
	// the prior state failed too.
	OutcomeRollbackFailed Outcome = "rollback-failed"
)

// Failed reports whether the outcome counts as an unresolved issue.
// A rollback leaves the original problem in place, so every rollback
// variant counts.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeApplied, OutcomeNotNeeded, OutcomeSkippedDryRun:
		return false
	}
	return true
}

// ActionResult records one repair action and how it ended.
type ActionResult struct {
	Action  string
	Outcome Outcome
	Backup  *backup.Record
	Err     error
}

// Options carries the per-run knobs every repair module shares.
type Options struct {
	// DryRun logs what would change without touching the system. No
	// backups are created in dry-run mode.
	DryRun bool
	// RunID tags backup labels so restores can be traced to a run.
	RunID string
}

func (o Options) label(action string) string {
	if o.RunID == "" {
		return action
	}
	return action + "-" + o.RunID
}

// Module is one repair domain.
type Module interface {
	Name() string
	// Run applies the domain's repairs and returns the number of
	// actions that ended in a failed outcome. Zero means everything
	// that needed fixing was fixed, or nothing needed fixing.
	Run(ctx context.Context) int
	// Results returns the per-action record of the last Run.
	Results() []ActionResult
}

// Order fixes the sequence repairs run in. Links come up before routes
// are installed, routes before DNS is probed, and the manager service
// last so restarting it cannot undo the earlier fixes mid-run.
var Order = []string{
	"interfaces",
	"routing",
	"dns",
	"netmanager",
}

// New returns the repair module for the given domain.
func New(domain string, sys netstate.System, store *backup.Store, settings config.Settings, opts Options, log *logging.Logger) (Module, error) {
	switch domain {
	case "interfaces":
		return NewInterfaces(sys, settings, opts, log), nil
	case "routing":
		return NewRouting(sys, settings, opts, log), nil
	case "dns":
		return NewDNS(sys, store, settings, opts, log), nil
	case "netmanager":
		return NewNetManager(sys, settings, opts, log), nil
	}
	return nil, fmt.Errorf("no repair module for domain %q", domain)
}

// All returns every repair module in the fixed order.
func All(sys netstate.System, store *backup.Store, settings config.Settings, opts Options, log *logging.Logger) []Module {
	modules := make([]Module, 0, len(Order))
	for _, domain := range Order {
		m, _ := New(domain, sys, store, settings, opts, log)
		modules = append(modules, m)
	}
	return modules
}

// record logs an action result and appends it to the slice. Shared by
// the domain modules so every action line reads the same.
func record(log *logging.Logger, results []ActionResult, r ActionResult) []ActionResult {
	switch r.Outcome {
	case OutcomeApplied:
		log.Info("repair applied", "action", r.Action)
	case OutcomeNotNeeded:
		log.Debug("nothing to repair", "action", r.Action)
	case OutcomeSkippedDryRun:
		log.Info("dry-run: skipping", "action", r.Action)
	case OutcomeRolledBack:
		log.Warn("verification failed, rolled back", "action", r.Action, "error", r.Err)
	case OutcomeRollbackFailed:
		log.Warn("verification failed and rollback failed", "action", r.Action, "error", r.Err)
	default:
		log.Error("repair failed", "action", r.Action, "outcome", string(r.Outcome), "error", r.Err)
	}
	return append(results, r)
}

// summarize logs the module outcome and returns the issue count.
func summarize(log *logging.Logger, name string, results []ActionResult) int {
	issues := 0
	for _, r := range results {
		if r.Outcome.Failed() {
			issues++
		}
	}
	if issues == 0 {
		log.Info("repairs complete", "module", name, "actions", len(results))
	} else {
		log.Warn("repairs incomplete", "module", name, "actions", len(results), "issues", issues)
	}
	return issues
}
