package repair

import (
	"context"
	"fmt"

	"github.com/miekg/dns"

	"grimm.is/netfix/internal/backup"
	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/diag"
	"grimm.is/netfix/internal/logging"
	"grimm.is/netfix/internal/netstate"
)

// DNSRepair rewrites resolv.conf with a known-good nameserver set when
// the file is missing or names no usable nameserver. The existing file
// is backed up first and restored if the written servers do not answer.
type DNSRepair struct {
	sys      netstate.System
	store    *backup.Store
	settings config.Settings
	opts     Options
	log      *logging.Logger
	results  []ActionResult
}

func NewDNS(sys netstate.System, store *backup.Store, settings config.Settings, opts Options, log *logging.Logger) *DNSRepair {
	return &DNSRepair{
		sys:      sys,
		store:    store,
		settings: settings,
		opts:     opts,
		log:      log.WithComponent("repair-dns"),
	}
}

func (r *DNSRepair) Name() string { return "dns" }

func (r *DNSRepair) Results() []ActionResult { return r.results }

func (r *DNSRepair) Run(ctx context.Context) int {
	r.results = nil
	path := r.settings.ResolvConf
	action := "rewrite " + path

	data, readErr := r.sys.Sys.ReadFile(path)
	hadFile := readErr == nil
	if hadFile && len(diag.ParseNameservers(data)) > 0 {
		r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeNotNeeded})
		return summarize(r.log, r.Name(), r.results)
	}
	if readErr != nil && !r.sys.Sys.IsNotExist(readErr) {
		// Unreadable is not the same as absent; do not clobber a file
		// we cannot see.
		r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeApplyFailed, Err: readErr})
		return summarize(r.log, r.Name(), r.results)
	}

	nameservers := r.settings.Repair.Nameservers
	if len(nameservers) == 0 {
		nameservers = config.DefaultSettings().Repair.Nameservers
	}

	if r.opts.DryRun {
		r.log.Info("would write nameservers", "path", path, "nameservers", nameservers)
		r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeSkippedDryRun})
		return summarize(r.log, r.Name(), r.results)
	}

	var rec *backup.Record
	if hadFile {
		var err error
		rec, err = r.store.Create(path, r.opts.label("resolv-conf"))
		if err != nil {
			r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeBackupFailed, Err: err})
			return summarize(r.log, r.Name(), r.results)
		}
		r.log.Debug("backed up", "path", path, "backup", rec.BackupPath)
	}

	content := diag.RenderResolvConf(nameservers, "netfix")
	if err := r.sys.Sys.WriteFile(path, content, 0o644); err != nil {
		r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeApplyFailed, Backup: rec, Err: err})
		return summarize(r.log, r.Name(), r.results)
	}

	err := r.verify(ctx, nameservers)
	if err == nil {
		r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: OutcomeApplied, Backup: rec})
		return summarize(r.log, r.Name(), r.results)
	}

	outcome := OutcomeRolledBack
	if rbErr := r.rollback(rec, path); rbErr != nil {
		outcome = OutcomeRollbackFailed
		r.log.Warn("cannot restore previous resolv.conf", "error", rbErr)
	}
	r.results = record(r.log, r.results, ActionResult{Action: action, Outcome: outcome, Backup: rec, Err: err})
	return summarize(r.log, r.Name(), r.results)
}

// verify queries each written nameserver directly. One answering server
// is enough; the file is only wrong if all of them are dead.
func (r *DNSRepair) verify(ctx context.Context, nameservers []string) error {
	host := r.settings.Probe.ResolveHost
	timeout := r.settings.Probe.DNSTimeout()
	var lastErr error
	for _, ns := range nameservers {
		_, rcode, err := r.sys.DNS.Query(ctx, ns, host, timeout)
		if err != nil {
			lastErr = err
			continue
		}
		if rcode == dns.RcodeSuccess {
			return nil
		}
		lastErr = fmt.Errorf("nameserver %s answered %s", ns, dns.RcodeToString[rcode])
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no nameservers to verify")
	}
	return lastErr
}

// rollback restores the pre-repair file, or removes the one we wrote
// when there was nothing before.
func (r *DNSRepair) rollback(rec *backup.Record, path string) error {
	if rec != nil {
		return r.store.Restore(*rec)
	}
	return r.sys.Sys.Remove(path)
}
