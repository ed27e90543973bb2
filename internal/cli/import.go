package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/deepr/internal/config"
	"github.com/mrlokans/deepr/internal/database/profiles"
	"github.com/mrlokans/deepr/internal/entities"
	"github.com/mrlokans/deepr/internal/entrypoint"
	"github.com/mrlokans/deepr/internal/formats"
	"github.com/mrlokans/deepr/internal/importers"
)

// ImportCommand imports links from a bookmark, CSV, JSON, Markdown or text file.
type ImportCommand struct {
	FilePath        string
	Format          string
	Profile         string
	AllowDuplicates bool
	DryRun          bool

	format formats.Format
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to the file to import (required)")
	fs.StringVar(&cmd.Format, "format", "", "Source format: csv, html, html-firefox, json, text, markdown (default: from file extension)")
	fs.StringVar(&cmd.Profile, "profile", entities.DefaultProfileName, "Profile that receives the imported links; created if missing")
	fs.BoolVar(&cmd.AllowDuplicates, "allow-duplicates", false, "Import links that already exist in the profile")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Show what would be imported without making changes")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import deep links into the local store.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Import a browser bookmarks export:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file bookmarks.html\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Preview a CSV import into the Work profile:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file links.csv -profile Work -dry-run\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}

	name := cmd.Format
	if name == "" {
		name = formatFromPath(cmd.FilePath)
	}
	format, err := formats.ParseFormat(name)
	if err != nil {
		return err
	}
	cmd.format = format

	return nil
}

func (cmd *ImportCommand) Run() error {
	fmt.Println("Link Import")
	fmt.Println("===========")

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

	f, err := os.Open(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", cmd.FilePath, err)
	}
	defer f.Close()

	app, err := entrypoint.NewApp(config.NewConfig())
	if err != nil {
		return err
	}
	defer app.Close()

	profile, err := profiles.NewRepository(app.DB.DB).GetOrCreate(cmd.Profile)
	if err != nil {
		return fmt.Errorf("failed to resolve profile %q: %w", cmd.Profile, err)
	}

	ctx := context.Background()

	if cmd.DryRun {
		preview, err := app.Importer.Preview(ctx, f, profile.ID, cmd.format)
		if err != nil {
			return err
		}
		printPreview(preview)
		return nil
	}

	outcome, err := app.Importer.Import(ctx, f, profile.ID, importers.Options{
		Format:          cmd.format,
		AllowDuplicates: cmd.AllowDuplicates,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d links into %q (%d skipped, %d duplicates)\n",
		outcome.Imported, profile.Name, outcome.Skipped, outcome.Duplicates)
	return nil
}

func printPreview(preview *importers.Preview) {
	var valid, duplicates int
	for _, c := range preview.Candidates {
		marker := " "
		switch {
		case !c.Valid:
			marker = "!"
		case c.Duplicate:
			marker = "="
			duplicates++
			valid++
		default:
			valid++
		}
		fmt.Printf("  [%s] %s\n", marker, c.Raw)
	}
	fmt.Printf("\n%d candidates: %d valid, %d duplicates, %d malformed rows\n",
		len(preview.Candidates), valid, duplicates, preview.Malformed)
	fmt.Println("Legend: ! invalid link, = already stored")
}
