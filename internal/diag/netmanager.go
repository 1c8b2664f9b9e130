package diag

import (
	"context"
	"strings"

	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/logging"
	"grimm.is/netfix/internal/netstate"
)

// Manager service unit names.
const (
	UnitNetworkManager = "NetworkManager"
	UnitNetworkd       = "systemd-networkd"
)

// ServiceActive reports whether a systemd unit is in the active state.
// systemctl exits non-zero for inactive units, so an error just means
// "not active".
func ServiceActive(cmd netstate.CommandExecutor, unit string) bool {
	out, err := cmd.RunCommand("systemctl", "is-active", unit)
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "active"
}

// NewNetManager builds the manager-service diagnostic module: exactly
// one network manager is active, and when NetworkManager is the manager
// its networking toggle is enabled.
func NewNetManager(deps Deps, settings config.Settings, log *logging.Logger) *Module {
	log = log.WithComponent("netmanager")

	m := &Module{Name: "netmanager", log: log}
	m.checks = []Check{
		{Name: "single-manager", Run: func(ctx context.Context) int {
			nm := ServiceActive(deps.Cmd, UnitNetworkManager)
			networkd := ServiceActive(deps.Cmd, UnitNetworkd)
			if nm && networkd {
				log.Warn("both NetworkManager and systemd-networkd are active; they will fight over interfaces")
				return 1
			}
			return 0
		}},
		{Name: "manager-active", Run: func(ctx context.Context) int {
			if ServiceActive(deps.Cmd, UnitNetworkManager) || ServiceActive(deps.Cmd, UnitNetworkd) {
				return 0
			}
			log.Warn("no network manager service is active")
			return 1
		}},
		{Name: "nm-networking-enabled", Run: func(ctx context.Context) int {
			if !ServiceActive(deps.Cmd, UnitNetworkManager) {
				log.Debug("NetworkManager not active, skipping networking toggle check")
				return 0
			}
			out, err := deps.Cmd.RunCommand("nmcli", "networking")
			if err != nil {
				log.Warn("cannot query NetworkManager networking state", "error", err)
				return 1
			}
			if strings.TrimSpace(out) != "enabled" {
				log.Warn("NetworkManager networking is disabled")
				return 1
			}
			return 0
		}},
	}
	return m
}
