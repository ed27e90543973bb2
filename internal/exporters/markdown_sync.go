package exporters

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mrlokans/deepr/internal/database"
	"github.com/mrlokans/deepr/internal/database/links"
	"github.com/mrlokans/deepr/internal/formats"
	"github.com/mrlokans/deepr/internal/settingsstore"
)

var (
	ErrMarkdownSyncDisabled = errors.New("markdown sync path not configured")
	ErrMarkdownTarget       = errors.New("markdown sync target is not a deepr table")
)

// MarkdownSync mirrors the whole store into one Markdown table file.
type MarkdownSync struct {
	db       *database.Database
	settings *settingsstore.SettingsStore
}

func NewMarkdownSync(db *database.Database, settings *settingsstore.SettingsStore) *MarkdownSync {
	return &MarkdownSync{db: db, settings: settings}
}

// Sync rewrites the configured file and returns how many links it holds.
// An existing file that is not a valid sync table is left untouched.
func (m *MarkdownSync) Sync(ctx context.Context) (int, error) {
	path := m.settings.GetMarkdownSyncPath()
	if path == "" {
		return 0, ErrMarkdownSyncDisabled
	}

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err == nil {
		if verr := formats.ValidateMarkdown(existing); verr != nil {
			return 0, fmt.Errorf("%w: %w", ErrMarkdownTarget, verr)
		}
	}

	all, err := links.NewRepository(m.db.DB).ListAll()
	if err != nil {
		return 0, fmt.Errorf("failed to load links: %w", err)
	}

	data, err := formats.MarkdownCodec{}.Encode(formats.RecordsFromLinks(all))
	if err != nil {
		return 0, err
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if _, err := (FileDestination{Path: path}).Write(ctx, "", data); err != nil {
		return 0, err
	}
	if err := m.settings.MarkMarkdownSynced(time.Now()); err != nil {
		log.Printf("Markdown sync: failed to record sync time: %v", err)
	}
	return len(all), nil
}
