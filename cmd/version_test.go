package cmd

import (
	"bytes"
	"strings"
	"testing"

	"grimm.is/netfix/internal/brand"
	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/logging"
)

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	RunVersion(&out)
	if !strings.Contains(out.String(), brand.Name) {
		t.Errorf("version output missing name: %q", out.String())
	}
	if !strings.Contains(out.String(), brand.Version) {
		t.Errorf("version output missing version: %q", out.String())
	}
}

func TestNewLoggerLevels(t *testing.T) {
	if got := newLogger(config.RunConfig{Verbose: true}).GetLevel(); got != logging.LevelDebug {
		t.Errorf("verbose level = %v", got)
	}
	if got := newLogger(config.RunConfig{Quiet: true}).GetLevel(); got != logging.LevelWarn {
		t.Errorf("quiet level = %v", got)
	}
	if got := newLogger(config.RunConfig{LogLevel: "warning"}).GetLevel(); got != logging.LevelWarn {
		t.Errorf("explicit level = %v", got)
	}
}
