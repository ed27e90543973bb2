package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrlokans/deepr/internal/config"
	"github.com/mrlokans/deepr/internal/entrypoint"
	"github.com/mrlokans/deepr/internal/exporters"
	"github.com/mrlokans/deepr/internal/formats"
)

// ExportCommand writes every stored link to a directory, a file or the remote provider.
type ExportCommand struct {
	Format      string
	Destination string
	Markdown    bool

	format formats.Format
}

func NewExportCommand() *ExportCommand {
	return &ExportCommand{}
}

func (cmd *ExportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)

	fs.StringVar(&cmd.Format, "format", string(formats.FormatCSV), "Output format: csv, html, json, markdown")
	fs.StringVar(&cmd.Destination, "dest", "", "Directory, file:<path> or remote:<name> (default: configured destination)")
	fs.BoolVar(&cmd.Markdown, "markdown-sync", false, "Rewrite the Markdown sync file instead of exporting")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s export [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Export all stored links.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s export -format html -dest ~/exports\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s export -format json -dest file:/tmp/links.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s export -markdown-sync\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := formats.ParseFormat(cmd.Format)
	if err != nil {
		return err
	}
	cmd.format = format

	return nil
}

func (cmd *ExportCommand) Run() error {
	app, err := entrypoint.NewApp(config.NewConfig())
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()

	if cmd.Markdown {
		n, err := app.MarkdownSync.Sync(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d links to %s\n", n, app.Settings.GetMarkdownSyncPath())
		return nil
	}

	msg, err := app.Exporter.Export(ctx, exporters.Request{
		Format:      cmd.format,
		Destination: cmd.Destination,
	})
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

// formatFromPath guesses the format name from a file extension.
func formatFromPath(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}
