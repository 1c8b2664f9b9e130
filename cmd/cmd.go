// Package cmd implements the subcommand entry points wired up by main.
package cmd

import (
	"fmt"
	"os"

	"grimm.is/netfix/internal/backup"
	"grimm.is/netfix/internal/clock"
	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/logging"
)

// newLogger builds the run logger from the resolved configuration.
func newLogger(rc config.RunConfig) *logging.Logger {
	level := logging.LevelInfo
	if rc.LogLevel != "" {
		level = logging.ParseLevel(rc.LogLevel)
	}
	if rc.Verbose {
		level = logging.LevelDebug
	}
	if rc.Quiet {
		level = logging.LevelWarn
	}
	return logging.New(logging.Config{
		Level:   level,
		Output:  os.Stderr,
		Colors:  rc.UseColors,
		LogFile: rc.LogFile,
	})
}

// resolveSettings loads the HCL settings file into rc.Settings. A path
// given explicitly must exist; the default path is optional.
func resolveSettings(rc *config.RunConfig) error {
	path := rc.SettingsPath
	explicit := path != ""
	if !explicit {
		path = config.DefaultSettingsPath()
	}
	settings, err := config.LoadSettings(path, explicit)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	rc.Settings = settings
	return nil
}

// newStore opens the backup store under the configured directory.
func newStore(settings config.Settings) *backup.Store {
	return backup.NewStore(settings.BackupDir, &clock.RealClock{})
}
