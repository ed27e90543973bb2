package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/deepr/internal/database"
	"github.com/mrlokans/deepr/internal/database/links"
	"github.com/mrlokans/deepr/internal/exporters"
	"github.com/mrlokans/deepr/internal/formats"
	"github.com/mrlokans/deepr/internal/settingsstore"
)

// Exporter writes the link store to a destination.
type Exporter interface {
	Export(ctx context.Context, req exporters.Request) (string, error)
}

// MarkdownSyncer rewrites the Markdown sync file.
type MarkdownSyncer interface {
	Sync(ctx context.Context) (int, error)
}

type ExportController struct {
	db       *database.Database
	settings *settingsstore.SettingsStore
	exporter Exporter
	markdown MarkdownSyncer
}

// NewExportController creates the export controller; markdown may be nil.
func NewExportController(db *database.Database, settings *settingsstore.SettingsStore, exporter Exporter, markdown MarkdownSyncer) *ExportController {
	return &ExportController{db: db, settings: settings, exporter: exporter, markdown: markdown}
}

type exportRequest struct {
	Format      string `json:"format" binding:"required"`
	Destination string `json:"destination"`
}

// Export writes every link to the requested or configured destination.
// A requested local path must stay inside the configured export directory.
// POST /api/export
func (ec *ExportController) Export(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "format is required")
		return
	}
	format, err := formats.ParseFormat(req.Format)
	if err != nil {
		respondPipelineError(c, err, "export format")
		return
	}
	var configured string
	if ec.settings != nil {
		configured = ec.settings.GetExportDestination()
	}
	if err := exporters.ConfineDestination(req.Destination, configured); err != nil {
		respondPipelineError(c, err, "export destination")
		return
	}

	message, err := ec.exporter.Export(c.Request.Context(), exporters.Request{
		Format:      format,
		Destination: req.Destination,
	})
	if err != nil {
		respondPipelineError(c, err, "export")
		return
	}
	respondSuccess(c, message)
}

// Download encodes every link and returns it as an attachment. It bypasses
// the export-enabled flag and destination since nothing is written server-side.
// GET /api/export/download?format=
func (ec *ExportController) Download(c *gin.Context) {
	format, err := formats.ParseFormat(c.DefaultQuery("format", string(formats.FormatCSV)))
	if err != nil {
		respondPipelineError(c, err, "export format")
		return
	}
	encoder, err := formats.EncoderFor(format)
	if err != nil {
		respondPipelineError(c, err, "export format")
		return
	}

	all, err := links.NewRepository(ec.db.DB).ListAll()
	if err != nil {
		respondInternalError(c, err, "load links")
		return
	}
	if len(all) == 0 {
		respondPipelineError(c, exporters.ErrNoData, "export download")
		return
	}

	data, err := encoder.Encode(formats.RecordsFromLinks(all))
	if err != nil {
		respondInternalError(c, err, "encode links")
		return
	}

	filename := fmt.Sprintf("deepr_export_%s.%s", time.Now().Format("20060102_150405"), format.Extension())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType(format), data)
}

// SyncMarkdown rewrites the Markdown sync file immediately
// POST /api/markdown-sync
func (ec *ExportController) SyncMarkdown(c *gin.Context) {
	if ec.markdown == nil {
		respondPipelineError(c, exporters.ErrMarkdownSyncDisabled, "markdown sync")
		return
	}
	count, err := ec.markdown.Sync(c.Request.Context())
	if err != nil {
		respondPipelineError(c, err, "markdown sync")
		return
	}
	respondSuccess(c, fmt.Sprintf("Synced %d links", count))
}

func contentType(f formats.Format) string {
	switch f {
	case formats.FormatCSV:
		return "text/csv; charset=utf-8"
	case formats.FormatHTML, formats.FormatHTMLFirefox:
		return "text/html; charset=utf-8"
	case formats.FormatJSON:
		return "application/json"
	case formats.FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
