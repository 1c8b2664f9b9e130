package diag

import (
	"context"
	"net"

	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/logging"
)

// NewConnectivity builds the outbound-connectivity diagnostic module:
// ICMP echo to the probe address, with a TCP dial as a secondary signal
// for paths where ICMP is filtered.
func NewConnectivity(deps Deps, settings config.Settings, log *logging.Logger) *Module {
	log = log.WithComponent("connectivity")

	m := &Module{Name: "connectivity", log: log}
	m.checks = []Check{
		{Name: "icmp-probe", Run: func(ctx context.Context) int {
			stats, err := deps.Ping.Ping(ctx, settings.Probe.PingAddress, settings.Probe.PingCount, settings.Probe.PingTimeout())
			if err != nil {
				log.Warn("ping failed", "target", settings.Probe.PingAddress, "error", err)
				return 1
			}
			if stats.Received == 0 {
				log.Warn("ping got no replies", "target", settings.Probe.PingAddress, "sent", stats.Sent)
				return 1
			}
			log.Debug("ping ok", "target", settings.Probe.PingAddress, "received", stats.Received, "avg_rtt", stats.AvgRtt)
			return 0
		}},
		{Name: "tcp-reachability", Run: func(ctx context.Context) int {
			addr := net.JoinHostPort(settings.Probe.PingAddress, "443")
			if err := deps.Dial.DialTimeout("tcp", addr, settings.Probe.PingTimeout()); err != nil {
				log.Warn("tcp connect failed", "target", addr, "error", err)
				return 1
			}
			log.Debug("tcp connect ok", "target", addr)
			return 0
		}},
	}
	return m
}
