package repair

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/mock"

	"grimm.is/netfix/internal/backup"
	"grimm.is/netfix/internal/clock"
	"grimm.is/netfix/internal/diag"
)

// resolvFixture writes a real resolv.conf for the backup store to copy
// and points the settings at it.
func resolvFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resolv.conf")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestDNSNotNeededWhenNameserversPresent(t *testing.T) {
	sys, _, sysc, _, _ := mockSystem()
	log, _ := testLogger()
	settings := testSettings()
	settings.ResolvConf = "/etc/resolv.conf"

	sysc.On("ReadFile", "/etc/resolv.conf").Return([]byte("nameserver 192.168.1.1\n"), nil)

	r := NewDNS(sys, testStore(t), settings, Options{}, log)
	if got := r.Run(context.Background()); got != 0 {
		t.Errorf("Run() = %d, want 0", got)
	}
	if r.Results()[0].Outcome != OutcomeNotNeeded {
		t.Errorf("outcome = %s, want not-needed", r.Results()[0].Outcome)
	}
	sysc.AssertNotCalled(t, "WriteFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestDNSRewritesMissingFile(t *testing.T) {
	sys, _, sysc, _, dnsq := mockSystem()
	log, _ := testLogger()
	settings := testSettings()
	settings.ResolvConf = resolvFixture(t, "")

	sysc.On("ReadFile", settings.ResolvConf).Return(nil, os.ErrNotExist)
	sysc.On("WriteFile", settings.ResolvConf, mock.MatchedBy(func(data []byte) bool {
		ns := diag.ParseNameservers(data)
		return len(ns) == 2 && ns[0] == "1.1.1.1" && ns[1] == "9.9.9.9"
	}), os.FileMode(0o644)).Return(nil)
	dnsq.On("Query", mock.Anything, "1.1.1.1", "probe.test", mock.Anything).
		Return([]string{"93.184.216.34"}, dns.RcodeSuccess, nil)

	store := testStore(t)
	r := NewDNS(sys, store, settings, Options{}, log)
	if got := r.Run(context.Background()); got != 0 {
		t.Errorf("Run() = %d, want 0", got)
	}
	if r.Results()[0].Outcome != OutcomeApplied {
		t.Errorf("outcome = %s, want applied", r.Results()[0].Outcome)
	}
	// Nothing existed before, so nothing to back up.
	if recs, _ := store.List(); len(recs) != 0 {
		t.Errorf("store has %d backups, want 0", len(recs))
	}
	sysc.AssertExpectations(t)
}

func TestDNSBacksUpExistingFile(t *testing.T) {
	sys, _, sysc, _, dnsq := mockSystem()
	log, _ := testLogger()
	settings := testSettings()
	settings.ResolvConf = resolvFixture(t, "# empty, no nameservers\n")

	sysc.On("ReadFile", settings.ResolvConf).Return([]byte("# empty, no nameservers\n"), nil)
	sysc.On("WriteFile", settings.ResolvConf, mock.Anything, os.FileMode(0o644)).Return(nil)
	dnsq.On("Query", mock.Anything, "1.1.1.1", "probe.test", mock.Anything).
		Return([]string{"93.184.216.34"}, dns.RcodeSuccess, nil)

	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	store := backup.NewStore(t.TempDir(), clock.NewMockClock(start))
	r := NewDNS(sys, store, settings, Options{RunID: "ab12"}, log)
	if got := r.Run(context.Background()); got != 0 {
		t.Errorf("Run() = %d, want 0", got)
	}
	recs, err := store.List()
	if err != nil || len(recs) != 1 {
		t.Fatalf("store.List() = %v, %v, want one record", recs, err)
	}
	if recs[0].OriginalPath != settings.ResolvConf {
		t.Errorf("backup original = %q", recs[0].OriginalPath)
	}
	if recs[0].Timestamp.Before(start) {
		t.Errorf("backup timestamp %v predates the action start %v", recs[0].Timestamp, start)
	}
	if !strings.Contains(recs[0].Label, "ab12") {
		t.Errorf("backup label %q should carry the run ID", recs[0].Label)
	}
	if r.Results()[0].Backup == nil {
		t.Error("ActionResult should reference the backup record")
	}
}

func TestDNSVerifyFailureRestoresBackup(t *testing.T) {
	sys, _, sysc, _, dnsq := mockSystem()
	log, buf := testLogger()
	settings := testSettings()
	settings.ResolvConf = resolvFixture(t, "search lan\n")

	sysc.On("ReadFile", settings.ResolvConf).Return([]byte("search lan\n"), nil)
	sysc.On("WriteFile", settings.ResolvConf, mock.Anything, os.FileMode(0o644)).Return(nil)
	// Every written nameserver is dead.
	dnsq.On("Query", mock.Anything, mock.Anything, "probe.test", mock.Anything).
		Return(nil, 0, errOperation)

	store := testStore(t)
	r := NewDNS(sys, store, settings, Options{}, log)
	if got := r.Run(context.Background()); got != 1 {
		t.Errorf("Run() = %d, want 1", got)
	}
	if r.Results()[0].Outcome != OutcomeRolledBack {
		t.Errorf("outcome = %s, want rolled-back", r.Results()[0].Outcome)
	}
	// Restore goes through the real store, check the file content.
	data, err := os.ReadFile(settings.ResolvConf)
	if err != nil || string(data) != "search lan\n" {
		t.Errorf("resolv.conf after rollback = %q, %v", data, err)
	}
	if !strings.Contains(buf.String(), "rolled back") {
		t.Error("expected rollback to be logged")
	}
}

func TestDNSVerifyFailureWithoutPriorFileRemoves(t *testing.T) {
	sys, _, sysc, _, dnsq := mockSystem()
	log, _ := testLogger()
	settings := testSettings()
	settings.ResolvConf = resolvFixture(t, "")

	sysc.On("ReadFile", settings.ResolvConf).Return(nil, os.ErrNotExist)
	sysc.On("WriteFile", settings.ResolvConf, mock.Anything, os.FileMode(0o644)).Return(nil)
	sysc.On("Remove", settings.ResolvConf).Return(nil)
	dnsq.On("Query", mock.Anything, mock.Anything, "probe.test", mock.Anything).
		Return(nil, dns.RcodeServerFailure, nil)

	r := NewDNS(sys, testStore(t), settings, Options{}, log)
	if got := r.Run(context.Background()); got != 1 {
		t.Errorf("Run() = %d, want 1", got)
	}
	if r.Results()[0].Outcome != OutcomeRolledBack {
		t.Errorf("outcome = %s, want rolled-back", r.Results()[0].Outcome)
	}
	sysc.AssertExpectations(t)
}

func TestDNSOneAnsweringServerSuffices(t *testing.T) {
	sys, _, sysc, _, dnsq := mockSystem()
	log, _ := testLogger()
	settings := testSettings()
	settings.ResolvConf = resolvFixture(t, "")

	sysc.On("ReadFile", settings.ResolvConf).Return(nil, os.ErrNotExist)
	sysc.On("WriteFile", settings.ResolvConf, mock.Anything, os.FileMode(0o644)).Return(nil)
	dnsq.On("Query", mock.Anything, "1.1.1.1", "probe.test", mock.Anything).
		Return(nil, 0, errOperation)
	dnsq.On("Query", mock.Anything, "9.9.9.9", "probe.test", mock.Anything).
		Return([]string{"93.184.216.34"}, dns.RcodeSuccess, nil)

	r := NewDNS(sys, testStore(t), settings, Options{}, log)
	if got := r.Run(context.Background()); got != 0 {
		t.Errorf("Run() = %d, want 0", got)
	}
	if r.Results()[0].Outcome != OutcomeApplied {
		t.Errorf("outcome = %s, want applied", r.Results()[0].Outcome)
	}
}

func TestDNSUnreadableFileNotClobbered(t *testing.T) {
	sys, _, sysc, _, _ := mockSystem()
	log, _ := testLogger()
	settings := testSettings()
	settings.ResolvConf = "/etc/resolv.conf"

	sysc.On("ReadFile", "/etc/resolv.conf").Return(nil, os.ErrPermission)

	r := NewDNS(sys, testStore(t), settings, Options{}, log)
	if got := r.Run(context.Background()); got != 1 {
		t.Errorf("Run() = %d, want 1", got)
	}
	if r.Results()[0].Outcome != OutcomeApplyFailed {
		t.Errorf("outcome = %s, want apply-failed", r.Results()[0].Outcome)
	}
	sysc.AssertNotCalled(t, "WriteFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestDNSDryRunWritesNothing(t *testing.T) {
	sys, _, sysc, _, _ := mockSystem()
	log, buf := testLogger()
	settings := testSettings()
	settings.ResolvConf = resolvFixture(t, "")

	sysc.On("ReadFile", settings.ResolvConf).Return(nil, os.ErrNotExist)

	store := testStore(t)
	r := NewDNS(sys, store, settings, Options{DryRun: true}, log)
	if got := r.Run(context.Background()); got != 0 {
		t.Errorf("Run() = %d, want 0", got)
	}
	if r.Results()[0].Outcome != OutcomeSkippedDryRun {
		t.Errorf("outcome = %s, want skipped-dry-run", r.Results()[0].Outcome)
	}
	if recs, _ := store.List(); len(recs) != 0 {
		t.Errorf("dry-run created %d backups", len(recs))
	}
	if !strings.Contains(buf.String(), "would write nameservers") {
		t.Error("expected dry-run plan to be logged")
	}
	sysc.AssertNotCalled(t, "WriteFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestDNSBackupFailureAborts(t *testing.T) {
	sys, _, sysc, _, _ := mockSystem()
	log, _ := testLogger()
	settings := testSettings()
	// File "exists" per the controller but is absent on disk, so the
	// store cannot copy it.
	settings.ResolvConf = filepath.Join(t.TempDir(), "resolv.conf")

	sysc.On("ReadFile", settings.ResolvConf).Return([]byte("# empty\n"), nil)

	r := NewDNS(sys, testStore(t), settings, Options{}, log)
	if got := r.Run(context.Background()); got != 1 {
		t.Errorf("Run() = %d, want 1", got)
	}
	if r.Results()[0].Outcome != OutcomeBackupFailed {
		t.Errorf("outcome = %s, want backup-failed", r.Results()[0].Outcome)
	}
	sysc.AssertNotCalled(t, "WriteFile", mock.Anything, mock.Anything, mock.Anything)
}
