// Package exporters writes the link store out through the format codecs.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mrlokans/deepr/internal/database"
	"github.com/mrlokans/deepr/internal/database/links"
	"github.com/mrlokans/deepr/internal/formats"
	"github.com/mrlokans/deepr/internal/metrics"
	"github.com/mrlokans/deepr/internal/settingsstore"
)

var (
	ErrExportDisabled = errors.New("export is disabled")
	ErrNoDestination  = errors.New("no export destination configured")
	ErrNoData         = errors.New("no links to export")
)

const (
	// AutoBackupBaseName is overwritten by every automatic backup.
	AutoBackupBaseName = "deepr_backup"
	exportBaseName     = "deepr_export"
	exportStampLayout  = "20060102_150405"
)

type Request struct {
	Format formats.Format
	// Destination overrides the configured destination when set.
	Destination string
	// Auto marks scheduled backups, which reuse one file name.
	Auto bool
}

// Recorder receives the result of every export run.
type Recorder interface {
	LogExport(format, destination string, auto bool, err error)
}

type Service struct {
	db       *database.Database
	settings *settingsstore.SettingsStore
	remote   Uploader
	recorder Recorder
	now      func() time.Time
}

// NewService creates an export service. remote and recorder may be nil.
func NewService(db *database.Database, settings *settingsstore.SettingsStore, remote Uploader, recorder Recorder) *Service {
	return &Service{
		db:       db,
		settings: settings,
		remote:   remote,
		recorder: recorder,
		now:      time.Now,
	}
}

// Export encodes every stored link and writes it to the destination.
// It returns a human-readable success message.
func (s *Service) Export(ctx context.Context, req Request) (string, error) {
	location, count, err := s.export(ctx, req)
	metrics.ExportRuns.WithLabelValues(string(req.Format), metrics.Status(err)).Inc()
	if s.recorder != nil {
		s.recorder.LogExport(string(req.Format), location, req.Auto, err)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Exported %d links to %s", count, location), nil
}

func (s *Service) export(ctx context.Context, req Request) (string, int, error) {
	if !s.settings.GetExportEnabled() {
		return "", 0, ErrExportDisabled
	}

	destID := req.Destination
	if destID == "" {
		destID = s.settings.GetExportDestination()
	}
	if destID == "" {
		return "", 0, ErrNoDestination
	}

	encoder, err := formats.EncoderFor(req.Format)
	if err != nil {
		return destID, 0, err
	}

	dest, err := ResolveDestination(destID, s.remote)
	if err != nil {
		return destID, 0, err
	}

	all, err := links.NewRepository(s.db.DB).ListAll()
	if err != nil {
		return destID, 0, fmt.Errorf("failed to load links: %w", err)
	}
	if len(all) == 0 {
		return destID, 0, ErrNoData
	}

	data, err := encoder.Encode(formats.RecordsFromLinks(all))
	if err != nil {
		return destID, 0, fmt.Errorf("failed to encode %s: %w", req.Format, err)
	}

	if err := ctx.Err(); err != nil {
		return destID, 0, err
	}

	location, err := dest.Write(ctx, s.fileName(req), data)
	if err != nil {
		return destID, 0, err
	}

	if err := s.settings.MarkExported(s.now()); err != nil {
		log.Printf("Export: failed to record export time: %v", err)
	}
	log.Printf("Export: wrote %d links as %s to %s", len(all), req.Format, location)
	return location, len(all), nil
}

func (s *Service) fileName(req Request) string {
	ext := req.Format.Extension()
	if req.Auto {
		return AutoBackupBaseName + "." + ext
	}
	return fmt.Sprintf("%s_%s.%s", exportBaseName, s.now().Format(exportStampLayout), ext)
}
