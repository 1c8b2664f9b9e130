package diag

import (
	"context"

	"github.com/miekg/dns"

	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/logging"
)

// maxNameserverProbes caps how many configured nameservers get a direct
// query; resolv.conf beyond three entries is ignored by libc anyway.
const maxNameserverProbes = 3

// NewDNS builds the name-resolution diagnostic module: resolv.conf is
// sane, each configured nameserver answers direct queries, and the
// system resolver resolves the probe hostname.
func NewDNS(deps Deps, settings config.Settings, log *logging.Logger) *Module {
	log = log.WithComponent("dns")

	m := &Module{Name: "dns", log: log}
	m.checks = []Check{
		{Name: "resolv-conf", Run: func(ctx context.Context) int {
			data, err := deps.Sys.ReadFile(settings.ResolvConf)
			if err != nil {
				log.Warn("cannot read resolver configuration", "path", settings.ResolvConf, "error", err)
				return 1
			}
			servers := ParseNameservers(data)
			if len(servers) == 0 {
				log.Warn("no nameservers configured", "path", settings.ResolvConf)
				return 1
			}
			log.Debug("nameservers configured", "count", len(servers))
			return 0
		}},
		{Name: "nameservers-answer", Run: func(ctx context.Context) int {
			data, err := deps.Sys.ReadFile(settings.ResolvConf)
			if err != nil {
				// Already reported by resolv-conf.
				return 0
			}
			servers := ParseNameservers(data)
			if len(servers) == 0 {
				return 0
			}
			if len(servers) > maxNameserverProbes {
				servers = servers[:maxNameserverProbes]
			}

			status := 0
			for _, server := range servers {
				addrs, rcode, err := deps.DNS.Query(ctx, server, settings.Probe.ResolveHost, settings.Probe.DNSTimeout())
				if err != nil {
					log.Warn("nameserver did not answer", "server", server, "error", err)
					status = 1
					continue
				}
				if rcode != dns.RcodeSuccess {
					log.Warn("nameserver returned failure", "server", server, "rcode", dns.RcodeToString[rcode])
					status = 1
					continue
				}
				log.Debug("nameserver answered", "server", server, "answers", len(addrs))
			}
			return status
		}},
		{Name: "system-resolver", Run: func(ctx context.Context) int {
			ctx, cancel := context.WithTimeout(ctx, settings.Probe.DNSTimeout())
			defer cancel()

			addrs, err := deps.Res.LookupHost(ctx, settings.Probe.ResolveHost)
			if err != nil {
				log.Warn("system resolver failed", "host", settings.Probe.ResolveHost, "error", err)
				return 1
			}
			if len(addrs) == 0 {
				log.Warn("system resolver returned no addresses", "host", settings.Probe.ResolveHost)
				return 1
			}
			log.Debug("system resolver ok", "host", settings.Probe.ResolveHost, "addrs", len(addrs))
			return 0
		}},
	}
	return m
}
