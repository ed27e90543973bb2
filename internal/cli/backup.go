package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/deepr/internal/config"
	"github.com/mrlokans/deepr/internal/entrypoint"
)

// BackupCommand uploads the full-store backup envelope to the remote provider.
type BackupCommand struct{}

func NewBackupCommand() *BackupCommand {
	return &BackupCommand{}
}

func (cmd *BackupCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s backup\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Upload a backup of profiles, links and tags to the configured remote provider.\n")
		fmt.Fprintf(os.Stderr, "Run '%s remote-auth' first to sign in.\n", os.Args[0])
	}
	return fs.Parse(args)
}

func (cmd *BackupCommand) Run() error {
	app, err := entrypoint.NewApp(config.NewConfig())
	if err != nil {
		return err
	}
	defer app.Close()

	msg, err := app.Backup.Backup(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

// RestoreCommand replaces the local store with the remote backup.
type RestoreCommand struct {
	Yes bool
}

func NewRestoreCommand() *RestoreCommand {
	return &RestoreCommand{}
}

func (cmd *RestoreCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)

	fs.BoolVar(&cmd.Yes, "yes", false, "Confirm that all local profiles, links and tags will be replaced")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s restore -yes\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Download the remote backup and replace the local store with it.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if !cmd.Yes {
		return fmt.Errorf("restore replaces every local link; pass -yes to confirm")
	}
	return nil
}

func (cmd *RestoreCommand) Run() error {
	app, err := entrypoint.NewApp(config.NewConfig())
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Backup.Restore(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Restored %d profiles, %d links and %d tags\n", result.Profiles, result.Links, result.Tags)
	if result.Dropped > 0 {
		fmt.Printf("Dropped %d links whose profile was missing from the backup\n", result.Dropped)
	}
	return nil
}
