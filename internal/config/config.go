// Package config builds the immutable run configuration from command-line
// flags, environment defaults, and an optional HCL settings file.
// Precedence: flags > environment > settings file > compiled defaults.
package config

import (
	"os"
	"strings"

	"grimm.is/netfix/internal/brand"
)

// RunConfig is the immutable per-invocation configuration. It is built
// once at startup and passed by value into every component; nothing
// consults the environment after construction.
type RunConfig struct {
	Command Command

	DryRun      bool
	Interactive bool
	AutoRepair  bool
	Verbose     bool
	Quiet       bool
	UseColors   bool
	LogFile     string
	LogLevel    string

	// SettingsPath is the HCL settings file; empty means use the
	// default path if present, compiled defaults otherwise.
	SettingsPath string

	Settings Settings
}

// EnvDefaults reads the supported environment overrides into a RunConfig
// that the flag layer then overrides. Recognized variables: DRY_RUN,
// INTERACTIVE, AUTO_REPAIR, VERBOSE, CURRENT_LOG_LEVEL, USE_COLORS,
// LOG_FILE, LOG_TO_FILE.
func EnvDefaults() RunConfig {
	cfg := RunConfig{
		UseColors: true,
		Settings:  DefaultSettings(),
	}

	cfg.DryRun = envBool("DRY_RUN", false)
	cfg.Interactive = envBool("INTERACTIVE", false)
	cfg.AutoRepair = envBool("AUTO_REPAIR", false)
	cfg.Verbose = envBool("VERBOSE", false)
	cfg.UseColors = envBool("USE_COLORS", true)
	cfg.LogLevel = os.Getenv("CURRENT_LOG_LEVEL")

	if lf := os.Getenv("LOG_FILE"); lf != "" {
		cfg.LogFile = lf
	} else if envBool("LOG_TO_FILE", false) {
		cfg.LogFile = brand.DefaultLogDir + "/" + brand.LowerName + ".log"
	}

	return cfg
}

// ParseBool interprets the boolean strings accepted in the environment:
// 1/true/yes/on are true, everything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func envBool(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def
	}
	return ParseBool(v)
}
