//go:build linux
// +build linux

package netstate

import (
	"fmt"

	"github.com/google/nftables"
)

// DefaultFirewallReader is the default nftables-backed reader.
var DefaultFirewallReader FirewallReader = &NFTFirewallReader{}

// NFTFirewallReader reads the ruleset over the nftables netlink API.
type NFTFirewallReader struct{}

// Snapshot lists tables, base chains, and per-chain rule counts.
func (r *NFTFirewallReader) Snapshot() (*FirewallSnapshot, error) {
	conn, err := nftables.New()
	if err != nil {
		return nil, fmt.Errorf("failed to open nftables connection: %w", err)
	}

	tables, err := conn.ListTables()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	chains, err := conn.ListChains()
	if err != nil {
		return nil, fmt.Errorf("failed to list chains: %w", err)
	}

	snap := &FirewallSnapshot{Tables: len(tables)}
	for _, chain := range chains {
		if chain.Table == nil {
			continue
		}

		fc := FirewallChain{
			Table:  chain.Table.Name,
			Family: familyName(chain.Table.Family),
			Name:   chain.Name,
		}
		if chain.Hooknum != nil && nftables.ChainHookInput != nil {
			fc.InputHook = *chain.Hooknum == *nftables.ChainHookInput
		}
		if chain.Policy != nil {
			fc.PolicyDrop = *chain.Policy == nftables.ChainPolicyDrop
		}

		rules, err := conn.GetRules(chain.Table, chain)
		if err == nil {
			fc.RuleCount = len(rules)
		}

		snap.Chains = append(snap.Chains, fc)
	}

	return snap, nil
}

func familyName(family nftables.TableFamily) string {
	switch family {
	case nftables.TableFamilyINet:
		return "inet"
	case nftables.TableFamilyIPv4:
		return "ip"
	case nftables.TableFamilyIPv6:
		return "ip6"
	case nftables.TableFamilyARP:
		return "arp"
	case nftables.TableFamilyBridge:
		return "bridge"
	case nftables.TableFamilyNetdev:
		return "netdev"
	}
	return "unknown"
}
