package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"grimm.is/netfix/internal/brand"
)

// Settings holds the tunable parameters of the toolkit: probe targets,
// repair inputs, and filesystem locations. Loaded from netfix.hcl when
// present, compiled defaults otherwise.
type Settings struct {
	Probe      ProbeSettings
	Repair     RepairSettings
	BackupDir  string
	ResolvConf string
	Ignore     []string // Glob patterns of interfaces to leave alone
}

// ProbeSettings configures the network probes used by diagnostics and
// the final verification.
type ProbeSettings struct {
	PingAddress        string `hcl:"ping_address,optional"`
	PingCount          int    `hcl:"ping_count,optional"`
	PingTimeoutSeconds int    `hcl:"ping_timeout_seconds,optional"`
	ResolveHost        string `hcl:"resolve_host,optional"`
	DNSTimeoutSeconds  int    `hcl:"dns_timeout_seconds,optional"`
}

// PingTimeout returns the bounded ping timeout.
func (p ProbeSettings) PingTimeout() time.Duration {
	return time.Duration(p.PingTimeoutSeconds) * time.Second
}

// DNSTimeout returns the per-query DNS timeout.
func (p ProbeSettings) DNSTimeout() time.Duration {
	return time.Duration(p.DNSTimeoutSeconds) * time.Second
}

// RepairSettings configures repair actions.
type RepairSettings struct {
	// Nameservers written to resolv.conf when DNS repair rewrites it.
	Nameservers []string `hcl:"nameservers,optional"`
	// Gateway installed as default route when routing repair needs one.
	// Empty means derive from an interface subnet (.1 convention).
	Gateway string `hcl:"gateway,optional"`
}

type fileSettings struct {
	Probe      *ProbeSettings     `hcl:"probe,block"`
	Repair     *RepairSettings    `hcl:"repair,block"`
	Backup     *backupSettings    `hcl:"backup,block"`
	Interfaces *interfaceSettings `hcl:"interfaces,block"`
	Remain     hcl.Body           `hcl:",remain"`
}

type backupSettings struct {
	Dir string `hcl:"dir,optional"`
}

type interfaceSettings struct {
	Ignore []string `hcl:"ignore,optional"`
}

// DefaultSettings returns the compiled defaults.
func DefaultSettings() Settings {
	return Settings{
		Probe: ProbeSettings{
			PingAddress:        "1.1.1.1",
			PingCount:          3,
			PingTimeoutSeconds: 3,
			ResolveHost:        "example.com",
			DNSTimeoutSeconds:  2,
		},
		Repair: RepairSettings{
			Nameservers: []string{"1.1.1.1", "9.9.9.9"},
		},
		BackupDir:  brand.DefaultBackupDir,
		ResolvConf: "/etc/resolv.conf",
		Ignore:     []string{"docker*", "veth*", "br-*", "virbr*", "tailscale*"},
	}
}

// DefaultSettingsPath is where LoadSettings looks when no explicit path
// is given.
func DefaultSettingsPath() string {
	return brand.DefaultConfigDir + "/" + brand.ConfigFileName
}

// LoadSettings reads an HCL settings file and layers it over the
// defaults. A missing file at the default path is not an error; a
// missing file at an explicit path is.
func LoadSettings(path string, explicit bool) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read settings file: %w", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return settings, fmt.Errorf("failed to parse %s: %s", path, diags.Error())
	}

	var fs fileSettings
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &fs); diags.HasErrors() {
		return settings, fmt.Errorf("invalid settings in %s: %s", path, diags.Error())
	}

	if fs.Probe != nil {
		mergeProbe(&settings.Probe, fs.Probe)
	}
	if fs.Repair != nil {
		if len(fs.Repair.Nameservers) > 0 {
			settings.Repair.Nameservers = fs.Repair.Nameservers
		}
		if fs.Repair.Gateway != "" {
			settings.Repair.Gateway = fs.Repair.Gateway
		}
	}
	if fs.Backup != nil && fs.Backup.Dir != "" {
		settings.BackupDir = fs.Backup.Dir
	}
	if fs.Interfaces != nil && len(fs.Interfaces.Ignore) > 0 {
		settings.Ignore = fs.Interfaces.Ignore
	}

	return settings, nil
}

func mergeProbe(dst, src *ProbeSettings) {
	if src.PingAddress != "" {
		dst.PingAddress = src.PingAddress
	}
	if src.PingCount > 0 {
		dst.PingCount = src.PingCount
	}
	if src.PingTimeoutSeconds > 0 {
		dst.PingTimeoutSeconds = src.PingTimeoutSeconds
	}
	if src.ResolveHost != "" {
		dst.ResolveHost = src.ResolveHost
	}
	if src.DNSTimeoutSeconds > 0 {
		dst.DNSTimeoutSeconds = src.DNSTimeoutSeconds
	}
}

// evalContext exposes the process environment to HCL expressions as
// env["NAME"], so settings files can say gateway = env["NETFIX_GATEWAY"].
func evalContext() *hcl.EvalContext {
	vals := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			vals[k] = cty.StringVal(v)
		}
	}

	envVal := cty.MapValEmpty(cty.String)
	if len(vals) > 0 {
		envVal = cty.MapVal(vals)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envVal,
		},
	}
}
