package main

import (
	"flag"
	"fmt"
	"os"

	"grimm.is/netfix/cmd"
	"grimm.is/netfix/internal/brand"
	"grimm.is/netfix/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version", "--version", "-V":
		cmd.RunVersion(os.Stdout)
		return
	case "help", "--help", "-h":
		printUsage()
		return
	}

	command, err := config.ParseCommand(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", brand.BinaryName, err)
		printUsage()
		os.Exit(1)
	}

	rc, args, err := parseFlags(command, os.Args[2:])
	if err != nil {
		// Exit 2 is reserved for repairs that need root.
		os.Exit(1)
	}

	switch command {
	case config.CmdBackups:
		if err := cmd.RunBackups(rc, args, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", brand.BinaryName, err)
			os.Exit(1)
		}
	case config.CmdRestore:
		var target string
		if len(args) > 0 {
			target = args[0]
		}
		code, err := cmd.RunRestore(rc, target, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", brand.BinaryName, err)
		}
		os.Exit(code)
	default:
		os.Exit(cmd.RunDoctor(rc))
	}
}

// parseFlags parses the per-command flags on top of the environment
// defaults and returns the run config plus the positional arguments.
func parseFlags(command config.Command, argv []string) (config.RunConfig, []string, error) {
	rc := config.EnvDefaults()
	rc.Command = command

	flags := flag.NewFlagSet(string(command), flag.ContinueOnError)
	flags.BoolVar(&rc.Verbose, "verbose", rc.Verbose, "Enable debug logging")
	flags.BoolVar(&rc.Verbose, "v", rc.Verbose, "Enable debug logging (short)")
	flags.BoolVar(&rc.Quiet, "quiet", rc.Quiet, "Log warnings and errors only")
	flags.BoolVar(&rc.Quiet, "q", rc.Quiet, "Log warnings and errors only (short)")
	flags.BoolVar(&rc.Interactive, "interactive", rc.Interactive, "Prompt before repairing")
	flags.BoolVar(&rc.Interactive, "i", rc.Interactive, "Prompt before repairing (short)")
	flags.BoolVar(&rc.AutoRepair, "auto-repair", rc.AutoRepair, "Repair without prompting when diagnostics find problems")
	flags.BoolVar(&rc.DryRun, "dry-run", rc.DryRun, "Log actions without changing anything")
	flags.BoolVar(&rc.DryRun, "n", rc.DryRun, "Dry run (short)")
	noColor := flags.Bool("no-color", !rc.UseColors, "Disable colored output")
	flags.StringVar(&rc.LogFile, "log-file", rc.LogFile, "Also append logs to this file")
	flags.StringVar(&rc.SettingsPath, "config", rc.SettingsPath, "Settings file (default "+config.DefaultSettingsPath()+")")
	flags.StringVar(&rc.SettingsPath, "c", rc.SettingsPath, "Settings file (short)")
	if err := flags.Parse(argv); err != nil {
		return rc, nil, err
	}
	rc.UseColors = !*noColor

	if command == config.CmdInteractive {
		rc.Interactive = true
	}
	return rc, flags.Args(), nil
}

func printUsage() {
	fmt.Printf("%s - %s\n\n", brand.Name, brand.Tagline)
	fmt.Printf("Usage: %s <command> [flags]\n\n", brand.BinaryName)
	fmt.Println("Diagnose:")
	fmt.Println("  diagnose                 Run every diagnostic and report")
	fmt.Println("  diagnose-interfaces      Link state and addressing")
	fmt.Println("  diagnose-routing         Default route and gateway")
	fmt.Println("  diagnose-dns             resolv.conf and nameservers")
	fmt.Println("  diagnose-connectivity    Outbound ICMP and TCP probes")
	fmt.Println("  diagnose-firewall        nftables ruleset sanity")
	fmt.Println("  diagnose-netmanager      Manager service state")
	fmt.Println()
	fmt.Println("Repair (requires root):")
	fmt.Println("  repair                   Diagnose, then repair everything found")
	fmt.Println("  repair-interfaces        Bring downed links up")
	fmt.Println("  repair-routing           Install a default route")
	fmt.Println("  repair-dns               Rewrite resolv.conf with working nameservers")
	fmt.Println("  repair-netmanager        Restart the network manager service")
	fmt.Println("  interactive              Diagnose, then ask before repairing")
	fmt.Println()
	fmt.Println("Backups:")
	fmt.Println("  backups [list]           List backups of repaired files")
	fmt.Println("  backups diff <n>         Diff a backup against the current file")
	fmt.Println("  backups prune <keep>     Drop old backups, keeping <keep> per file")
	fmt.Println("  restore <n|path>         Restore a backup (requires root)")
	fmt.Println()
	fmt.Println("Other:")
	fmt.Println("  version                  Print version information")
	fmt.Println("  help                     Show this help")
	fmt.Println()
	fmt.Println("Common flags:")
	fmt.Println("  -v, --verbose            Debug logging")
	fmt.Println("  -q, --quiet              Warnings and errors only")
	fmt.Println("  -n, --dry-run            Log actions without changing anything")
	fmt.Println("  -i, --interactive        Prompt before repairing")
	fmt.Println("      --auto-repair        Repair without prompting")
	fmt.Println("      --no-color           Disable colored output")
	fmt.Println("      --log-file FILE      Also append logs to FILE")
	fmt.Println("  -c, --config FILE        Settings file")
	fmt.Println()
	fmt.Println("Exit codes: 0 healthy, 1 issues remain, 2 repairs need root")
}
