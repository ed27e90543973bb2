package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/deepr/internal/cli"
	"github.com/mrlokans/deepr/internal/config"
	"github.com/mrlokans/deepr/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// command is implemented by every subcommand in internal/cli.
type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	config.LoadDotEnv()

	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "import":
		cmd = cli.NewImportCommand()
	case "export":
		cmd = cli.NewExportCommand()
	case "backup":
		cmd = cli.NewBackupCommand()
	case "restore":
		cmd = cli.NewRestoreCommand()
	case "remote-auth":
		cmd = cli.NewRemoteAuthCommand()
	case "version":
		fmt.Printf("deepr %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve        Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  import       Import links from a bookmarks, CSV, JSON, Markdown or text file\n")
	fmt.Fprintf(os.Stderr, "  export       Export all links to a directory, file or the remote provider\n")
	fmt.Fprintf(os.Stderr, "  backup       Upload a full backup to the remote provider\n")
	fmt.Fprintf(os.Stderr, "  restore      Replace the local store with the remote backup\n")
	fmt.Fprintf(os.Stderr, "  remote-auth  Sign in to the remote sync provider\n")
	fmt.Fprintf(os.Stderr, "  version      Print version information\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
