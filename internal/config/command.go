package config

import "fmt"

// Command identifies a supported subcommand. The set is closed: anything
// not listed here is rejected at startup with ErrUnknownCommand.
type Command string

const (
	CmdDiagnose             Command = "diagnose"
	CmdDiagnoseInterfaces   Command = "diagnose-interfaces"
	CmdDiagnoseRouting      Command = "diagnose-routing"
	CmdDiagnoseDNS          Command = "diagnose-dns"
	CmdDiagnoseConnectivity Command = "diagnose-connectivity"
	CmdDiagnoseFirewall     Command = "diagnose-firewall"
	CmdDiagnoseNetManager   Command = "diagnose-netmanager"
	CmdRepair               Command = "repair"
	CmdRepairInterfaces     Command = "repair-interfaces"
	CmdRepairRouting        Command = "repair-routing"
	CmdRepairDNS            Command = "repair-dns"
	CmdRepairNetManager     Command = "repair-netmanager"
	CmdInteractive          Command = "interactive"
	CmdBackups              Command = "backups"
	CmdRestore              Command = "restore"
	CmdVersion              Command = "version"
	CmdHelp                 Command = "help"
)

// UnknownCommandError is returned when an unrecognized command name is given.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Name)
}

var commands = map[string]Command{
	string(CmdDiagnose):             CmdDiagnose,
	string(CmdDiagnoseInterfaces):   CmdDiagnoseInterfaces,
	string(CmdDiagnoseRouting):      CmdDiagnoseRouting,
	string(CmdDiagnoseDNS):          CmdDiagnoseDNS,
	string(CmdDiagnoseConnectivity): CmdDiagnoseConnectivity,
	string(CmdDiagnoseFirewall):     CmdDiagnoseFirewall,
	string(CmdDiagnoseNetManager):   CmdDiagnoseNetManager,
	string(CmdRepair):               CmdRepair,
	string(CmdRepairInterfaces):     CmdRepairInterfaces,
	string(CmdRepairRouting):        CmdRepairRouting,
	string(CmdRepairDNS):            CmdRepairDNS,
	string(CmdRepairNetManager):     CmdRepairNetManager,
	string(CmdInteractive):          CmdInteractive,
	string(CmdBackups):              CmdBackups,
	string(CmdRestore):              CmdRestore,
	string(CmdVersion):              CmdVersion,
	string(CmdHelp):                 CmdHelp,
}

// ParseCommand maps a command-line name to its Command value.
func ParseCommand(name string) (Command, error) {
	if cmd, ok := commands[name]; ok {
		return cmd, nil
	}
	return "", &UnknownCommandError{Name: name}
}

// IsRepair reports whether the command performs mutations and therefore
// requires elevated privileges.
func (c Command) IsRepair() bool {
	switch c {
	case CmdRepair, CmdRepairInterfaces, CmdRepairRouting, CmdRepairDNS, CmdRepairNetManager, CmdRestore:
		return true
	}
	return false
}

// Domain returns the single domain a diagnose-<domain> or repair-<domain>
// command targets, or "" for aggregate commands.
func (c Command) Domain() string {
	switch c {
	case CmdDiagnoseInterfaces, CmdRepairInterfaces:
		return "interfaces"
	case CmdDiagnoseRouting, CmdRepairRouting:
		return "routing"
	case CmdDiagnoseDNS, CmdRepairDNS:
		return "dns"
	case CmdDiagnoseConnectivity:
		return "connectivity"
	case CmdDiagnoseFirewall:
		return "firewall"
	case CmdDiagnoseNetManager, CmdRepairNetManager:
		return "netmanager"
	}
	return ""
}
