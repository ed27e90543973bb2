package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/deepr/internal/entities"
	"github.com/mrlokans/deepr/internal/formats"
	"github.com/mrlokans/deepr/internal/importers"
)

// maxImportSize caps uploaded documents.
const maxImportSize = 32 << 20

// Importer is the import pipeline as seen by the API.
type Importer interface {
	Import(ctx context.Context, src io.Reader, profileID uint, opts importers.Options) (importers.Outcome, error)
	Preview(ctx context.Context, src io.Reader, profileID uint, format formats.Format) (*importers.Preview, error)
	PreviewRecords(ctx context.Context, records []formats.Record, profileID uint, format formats.Format) (*importers.Preview, error)
	Commit(ctx context.Context, preview *importers.Preview, profileID uint, opts importers.Options) (importers.Outcome, error)
}

type ImportController struct {
	importer Importer
	profiles ProfileStore
	notifier ChangeNotifier
}

func NewImportController(importer Importer, profiles ProfileStore, notifier ChangeNotifier) *ImportController {
	return &ImportController{importer: importer, profiles: profiles, notifier: notifier}
}

// importSource is one uploaded document plus the parameters sent with it.
type importSource struct {
	reader          io.Reader
	format          formats.Format
	profileID       uint
	allowDuplicates bool
	close           func()
}

// readSource accepts a multipart "file" or a pasted "content" form field.
// The format comes from the "format" field, or from the file extension.
func (ic *ImportController) readSource(c *gin.Context) (*importSource, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)

	src := &importSource{close: func() {}}
	formatName := c.PostForm("format")

	if header, err := c.FormFile("file"); err == nil {
		f, err := header.Open()
		if err != nil {
			respondBadRequest(c, "failed to read uploaded file")
			return nil, false
		}
		src.reader = f
		src.close = func() { _ = f.Close() }
		if formatName == "" {
			formatName = filepath.Ext(header.Filename)
		}
	} else if content := c.PostForm("content"); content != "" {
		src.reader = strings.NewReader(content)
		if formatName == "" {
			formatName = string(formats.FormatText)
		}
	} else {
		respondBadRequest(c, "file or content is required")
		return nil, false
	}

	format, err := formats.ParseFormat(formatName)
	if err != nil {
		src.close()
		respondPipelineError(c, err, "import format")
		return nil, false
	}
	src.format = format

	profileID, ok := ic.resolveProfile(c, c.PostForm("profile_id"))
	if !ok {
		src.close()
		return nil, false
	}
	src.profileID = profileID
	src.allowDuplicates, _ = strconv.ParseBool(c.PostForm("allow_duplicates"))
	return src, true
}

// resolveProfile falls back to the default profile when raw is empty.
func (ic *ImportController) resolveProfile(c *gin.Context, raw string) (uint, bool) {
	if raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid profile_id")
			return 0, false
		}
		return uint(id), true
	}
	profile, err := ic.profiles.GetByName(entities.DefaultProfileName)
	if err != nil {
		respondInternalError(c, err, "resolve default profile")
		return 0, false
	}
	return profile.ID, true
}

// Import decodes and commits a document in one step
// POST /api/import
func (ic *ImportController) Import(c *gin.Context) {
	src, ok := ic.readSource(c)
	if !ok {
		return
	}
	defer src.close()

	outcome, err := ic.importer.Import(c.Request.Context(), src.reader, src.profileID, importers.Options{
		Format:          src.format,
		AllowDuplicates: src.allowDuplicates,
	})
	ic.respondOutcome(c, outcome, err)
}

// Preview decodes a document and returns the flagged candidates
// POST /api/import/preview
func (ic *ImportController) Preview(c *gin.Context) {
	src, ok := ic.readSource(c)
	if !ok {
		return
	}
	defer src.close()

	preview, err := ic.importer.Preview(c.Request.Context(), src.reader, src.profileID, src.format)
	if err != nil {
		respondPipelineError(c, err, "import preview")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile_id": src.profileID,
		"preview":    preview,
	})
}

type commitRequest struct {
	Format          string                `json:"format" binding:"required"`
	ProfileID       uint                  `json:"profile_id" binding:"required"`
	AllowDuplicates bool                  `json:"allow_duplicates"`
	Candidates      []importers.Candidate `json:"candidates"`
}

// Commit stores the candidates the client left selected. Validity and
// duplicate flags are recomputed; only the selection is taken from the client.
// POST /api/import/commit
func (ic *ImportController) Commit(c *gin.Context) {
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "format and profile_id are required")
		return
	}
	format, err := formats.ParseFormat(req.Format)
	if err != nil {
		respondPipelineError(c, err, "import format")
		return
	}

	records := make([]formats.Record, len(req.Candidates))
	for i, cand := range req.Candidates {
		records[i] = cand.Record
	}

	ctx := c.Request.Context()
	preview, err := ic.importer.PreviewRecords(ctx, records, req.ProfileID, format)
	if err != nil {
		respondPipelineError(c, err, "import commit")
		return
	}
	for i := range preview.Candidates {
		preview.Candidates[i].Selected = req.Candidates[i].Selected
	}

	outcome, err := ic.importer.Commit(ctx, preview, req.ProfileID, importers.Options{
		Format:          format,
		AllowDuplicates: req.AllowDuplicates,
	})
	ic.respondOutcome(c, outcome, err)
}

func (ic *ImportController) respondOutcome(c *gin.Context, outcome importers.Outcome, err error) {
	if err != nil {
		if errors.Is(err, importers.ErrCommit) {
			respondInternalError(c, err, "import commit")
			return
		}
		respondPipelineError(c, err, "import")
		return
	}
	if outcome.Imported > 0 && ic.notifier != nil {
		ic.notifier.LinksChanged()
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Imported %d links", outcome.Imported),
		"outcome": outcome,
	})
}
