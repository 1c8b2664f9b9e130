package diag

import (
	"context"

	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/logging"
)

// NewFirewall builds the firewall diagnostic module: the nftables
// ruleset is readable and no input chain drops everything.
func NewFirewall(deps Deps, settings config.Settings, log *logging.Logger) *Module {
	log = log.WithComponent("firewall")

	m := &Module{Name: "firewall", log: log}
	m.checks = []Check{
		{Name: "ruleset-readable", Run: func(ctx context.Context) int {
			snap, err := deps.FW.Snapshot()
			if err != nil {
				log.Warn("cannot read nftables ruleset", "error", err)
				return 1
			}
			rules := 0
			for _, c := range snap.Chains {
				rules += c.RuleCount
			}
			log.Debug("ruleset read", "tables", snap.Tables, "chains", len(snap.Chains), "rules", rules)
			return 0
		}},
		{Name: "input-lockout", Run: func(ctx context.Context) int {
			snap, err := deps.FW.Snapshot()
			if err != nil {
				// Already reported by ruleset-readable.
				return 0
			}
			status := 0
			for _, c := range snap.Chains {
				if c.InputHook && c.PolicyDrop && c.RuleCount == 0 {
					log.Warn("input chain drops all traffic with no accept rules",
						"table", c.Table, "family", c.Family, "chain", c.Name)
					status = 1
				}
			}
			return status
		}},
	}
	return m
}
