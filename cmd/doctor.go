package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/doctor"
	"grimm.is/netfix/internal/netstate"
)

// RunDoctor executes a diagnose or repair command and returns the
// process exit code. SIGINT/SIGTERM cancel the run context; in-flight
// probes finish, nothing new starts.
func RunDoctor(rc config.RunConfig) int {
	log := newLogger(rc)
	defer log.Close()

	if err := resolveSettings(&rc); err != nil {
		log.Error("invalid settings", "error", err)
		return doctor.ExitIssues
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sys := netstate.DefaultSystem()
	var rec *netstate.DryRunRecorder
	if rc.DryRun {
		sys, rec = netstate.WithDryRun(sys)
	}

	d := doctor.New(sys, newStore(rc.Settings), rc.Settings, rc, log)
	code := d.Run(ctx)

	if rec != nil {
		for _, op := range rec.Ops() {
			log.Info("dry-run: would apply", "op", op)
		}
	}
	return code
}
