package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"grimm.is/netfix/internal/backup"
	"grimm.is/netfix/internal/clock"
	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/doctor"
	"grimm.is/netfix/internal/netstate"
)

// seedConfig points the run at a temp backup dir and writes one backed
// up file into it.
func seedConfig(t *testing.T, backupDir string) config.RunConfig {
	t.Helper()
	settingsPath := filepath.Join(t.TempDir(), "netfix.hcl")
	content := "backup {\n  dir = \"" + backupDir + "\"\n}\n"
	if err := os.WriteFile(settingsPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return config.RunConfig{SettingsPath: settingsPath, Settings: config.DefaultSettings()}
}

func seedBackup(t *testing.T, backupDir string) string {
	t.Helper()
	original := filepath.Join(t.TempDir(), "resolv.conf")
	if err := os.WriteFile(original, []byte("nameserver 10.0.0.1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := newStore(config.Settings{BackupDir: backupDir})
	if _, err := store.Create(original, "test"); err != nil {
		t.Fatal(err)
	}
	return original
}

func TestRunBackupsListEmpty(t *testing.T) {
	rc := seedConfig(t, t.TempDir())
	var out bytes.Buffer
	if err := RunBackups(rc, nil, &out); err != nil {
		t.Fatalf("RunBackups() error = %v", err)
	}
	if !strings.Contains(out.String(), "no backups") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunBackupsList(t *testing.T) {
	backupDir := t.TempDir()
	rc := seedConfig(t, backupDir)
	original := seedBackup(t, backupDir)

	var out bytes.Buffer
	if err := RunBackups(rc, []string{"list"}, &out); err != nil {
		t.Fatalf("RunBackups() error = %v", err)
	}
	if !strings.Contains(out.String(), original) {
		t.Errorf("listing should name the original path, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "test") {
		t.Errorf("listing should show the label, got:\n%s", out.String())
	}
}

func TestRunBackupsDiff(t *testing.T) {
	backupDir := t.TempDir()
	rc := seedConfig(t, backupDir)
	original := seedBackup(t, backupDir)

	// Drift the original so the diff is non-empty.
	if err := os.WriteFile(original, []byte("nameserver 10.9.9.9\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := RunBackups(rc, []string{"diff", "1"}, &out); err != nil {
		t.Fatalf("RunBackups() error = %v", err)
	}
	if !strings.Contains(out.String(), "10.0.0.1") || !strings.Contains(out.String(), "10.9.9.9") {
		t.Errorf("diff should show both versions, got:\n%s", out.String())
	}
}

func TestRunBackupsDiffBadNumber(t *testing.T) {
	rc := seedConfig(t, t.TempDir())
	var out bytes.Buffer
	if err := RunBackups(rc, []string{"diff", "7"}, &out); err == nil {
		t.Error("diff of a missing backup should error")
	}
}

func TestRunBackupsUnknownSubcommand(t *testing.T) {
	rc := seedConfig(t, t.TempDir())
	var out bytes.Buffer
	if err := RunBackups(rc, []string{"bogus"}, &out); err == nil {
		t.Error("unknown subcommand should error")
	}
}

func TestRunBackupsPrune(t *testing.T) {
	backupDir := t.TempDir()
	rc := seedConfig(t, backupDir)

	original := filepath.Join(t.TempDir(), "resolv.conf")
	if err := os.WriteFile(original, []byte("nameserver 10.0.0.1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	clk := clock.NewMockClock(clock.Now())
	store := backup.NewStore(backupDir, clk)
	for i := 0; i < 3; i++ {
		if _, err := store.Create(original, "test"); err != nil {
			t.Fatal(err)
		}
		clk.Advance(2 * time.Second)
	}

	var out bytes.Buffer
	if err := RunBackups(rc, []string{"prune", "1"}, &out); err != nil {
		t.Fatalf("RunBackups() error = %v", err)
	}
	if !strings.Contains(out.String(), "removed 2") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunRestoreDryRunWritesNothing(t *testing.T) {
	backupDir := t.TempDir()
	rc := seedConfig(t, backupDir)
	rc.DryRun = true
	original := seedBackup(t, backupDir)

	if err := os.WriteFile(original, []byte("drifted\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	code, err := RunRestore(rc, original, &out)
	if err != nil || code != doctor.ExitOK {
		t.Fatalf("RunRestore() = %d, %v", code, err)
	}
	data, _ := os.ReadFile(original)
	if string(data) != "drifted\n" {
		t.Errorf("dry-run modified the file: %q", data)
	}
	if !strings.Contains(out.String(), "would restore") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunRestoreLatest(t *testing.T) {
	backupDir := t.TempDir()
	rc := seedConfig(t, backupDir)
	original := seedBackup(t, backupDir)

	if err := os.WriteFile(original, []byte("drifted\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	restoreElevated(t)
	var out bytes.Buffer
	code, err := RunRestore(rc, original, &out)
	if err != nil || code != doctor.ExitOK {
		t.Fatalf("RunRestore() = %d, %v", code, err)
	}
	data, _ := os.ReadFile(original)
	if string(data) != "nameserver 10.0.0.1\n" {
		t.Errorf("file after restore = %q", data)
	}
}

func TestRunRestoreUnprivileged(t *testing.T) {
	backupDir := t.TempDir()
	rc := seedConfig(t, backupDir)
	original := seedBackup(t, backupDir)

	prev := netstate.Elevated
	netstate.Elevated = func() bool { return false }
	t.Cleanup(func() { netstate.Elevated = prev })

	var out bytes.Buffer
	code, err := RunRestore(rc, original, &out)
	if code != doctor.ExitPrivilege || err == nil {
		t.Errorf("RunRestore() = %d, %v, want privilege refusal", code, err)
	}
}

func TestRunRestoreNoBackup(t *testing.T) {
	rc := seedConfig(t, t.TempDir())
	var out bytes.Buffer
	if code, err := RunRestore(rc, "/etc/never-backed-up", &out); err == nil || code != doctor.ExitIssues {
		t.Errorf("RunRestore() = %d, %v, want error", code, err)
	}
}

// restoreElevated fakes elevation for the duration of the test.
func restoreElevated(t *testing.T) {
	t.Helper()
	prev := netstate.Elevated
	netstate.Elevated = func() bool { return true }
	t.Cleanup(func() { netstate.Elevated = prev })
}
