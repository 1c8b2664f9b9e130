package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"grimm.is/netfix/internal/backup"
	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/doctor"
	"grimm.is/netfix/internal/netstate"
)

// RunBackups handles `backups [list|diff <n>|prune <keep>]`.
func RunBackups(rc config.RunConfig, args []string, out io.Writer) error {
	if err := resolveSettings(&rc); err != nil {
		return err
	}
	store := newStore(rc.Settings)

	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "list":
		return listBackups(store, out)
	case "diff":
		if len(args) < 2 {
			return fmt.Errorf("usage: backups diff <number>")
		}
		return diffBackup(store, args[1], out)
	case "prune":
		if len(args) < 2 {
			return fmt.Errorf("usage: backups prune <keep-per-file>")
		}
		keep, err := strconv.Atoi(args[1])
		if err != nil || keep < 0 {
			return fmt.Errorf("keep count must be a non-negative integer, got %q", args[1])
		}
		removed, err := store.Prune(keep)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "removed %d backup(s)\n", removed)
		return nil
	}
	return fmt.Errorf("unknown backups subcommand %q", sub)
}

func listBackups(store *backup.Store, out io.Writer) error {
	recs, err := store.List()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(out, "no backups")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "#\tCREATED\tORIGINAL\tLABEL\tSIZE")
	for i, rec := range recs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n",
			i+1, rec.Timestamp.Format(time.RFC3339), rec.OriginalPath, rec.Label, rec.Size)
	}
	return w.Flush()
}

func diffBackup(store *backup.Store, number string, out io.Writer) error {
	rec, err := backupByNumber(store, number)
	if err != nil {
		return err
	}
	diff, err := store.Diff(*rec)
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Fprintln(out, "backup matches the current file")
		return nil
	}
	fmt.Fprint(out, diff)
	return nil
}

// RunRestore handles `restore <number|original-path>`. Restoring is a
// mutation: it requires elevation and honors dry-run.
func RunRestore(rc config.RunConfig, target string, out io.Writer) (int, error) {
	if target == "" {
		return doctor.ExitIssues, fmt.Errorf("usage: restore <number|original-path>")
	}
	if err := resolveSettings(&rc); err != nil {
		return doctor.ExitIssues, err
	}
	store := newStore(rc.Settings)

	var rec *backup.Record
	var err error
	if _, convErr := strconv.Atoi(target); convErr == nil {
		rec, err = backupByNumber(store, target)
	} else {
		rec, err = store.LatestFor(target)
	}
	if err != nil {
		return doctor.ExitIssues, err
	}

	if rc.DryRun {
		fmt.Fprintf(out, "would restore %s from %s\n", rec.OriginalPath, rec.BackupPath)
		return doctor.ExitOK, nil
	}
	if !netstate.Elevated() {
		return doctor.ExitPrivilege, doctor.ErrNotElevated
	}
	if err := store.Restore(*rec); err != nil {
		return doctor.ExitIssues, err
	}
	fmt.Fprintf(out, "restored %s from %s\n", rec.OriginalPath, rec.BackupPath)
	return doctor.ExitOK, nil
}

func backupByNumber(store *backup.Store, number string) (*backup.Record, error) {
	n, err := strconv.Atoi(number)
	if err != nil {
		return nil, fmt.Errorf("backup number must be an integer, got %q", number)
	}
	recs, err := store.List()
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(recs) {
		return nil, fmt.Errorf("backup %d does not exist, have %d", n, len(recs))
	}
	return &recs[n-1], nil
}
