package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/deepr/internal/database"
	"github.com/mrlokans/deepr/internal/database/links"
	"github.com/mrlokans/deepr/internal/database/profiles"
	"github.com/mrlokans/deepr/internal/database/tags"
	"github.com/mrlokans/deepr/internal/entities"
	"github.com/mrlokans/deepr/internal/formats"
)

// ChangeNotifier hears about link mutations so derived files can be refreshed.
type ChangeNotifier interface {
	LinksChanged()
	LinksDeleted()
}

type LinksController struct {
	db       *database.Database
	notifier ChangeNotifier
}

// NewLinksController creates the link CRUD controller; notifier may be nil.
func NewLinksController(db *database.Database, notifier ChangeNotifier) *LinksController {
	return &LinksController{db: db, notifier: notifier}
}

// ListLinks returns a page of links
// GET /api/links?profile_id=&tag=&favourite=&q=&limit=&offset=
func (lc *LinksController) ListLinks(c *gin.Context) {
	profileID, ok := parseOptionalQueryID(c, "profile_id")
	if !ok {
		return
	}
	limit, offset := parsePaging(c, 50, 500)

	result, total, err := links.NewRepository(lc.db.DB).Find(links.Filter{
		ProfileID:     profileID,
		Tag:           c.Query("tag"),
		FavouriteOnly: c.Query("favourite") == "true",
		Query:         strings.TrimSpace(c.Query("q")),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		respondInternalError(c, err, "list links")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    result,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(result)) < total,
	})
}

type createLinkRequest struct {
	Link        string   `json:"link" binding:"required"`
	Name        string   `json:"name"`
	Notes       string   `json:"notes"`
	Thumbnail   string   `json:"thumbnail"`
	Tags        []string `json:"tags"`
	IsFavourite bool     `json:"is_favourite"`
	ProfileID   uint     `json:"profile_id"`
}

// CreateLink stores a single link
// POST /api/links
func (lc *LinksController) CreateLink(c *gin.Context) {
	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "link is required")
		return
	}

	normalized := formats.NormalizeLink(req.Link)
	if err := formats.ValidateLink(normalized); err != nil {
		respondPipelineError(c, fmt.Errorf("%w: %q", err, req.Link), "create link")
		return
	}

	var created entities.Link
	err := lc.db.WithTransaction(func(tx *gorm.DB) error {
		profileRepo := profiles.NewRepository(tx)
		var profile *entities.Profile
		var err error
		if req.ProfileID != 0 {
			profile, err = profileRepo.GetByID(req.ProfileID)
		} else {
			profile, err = profileRepo.GetOrCreate(entities.DefaultProfileName)
		}
		if err != nil {
			return err
		}

		created = entities.Link{
			Link:        normalized,
			Name:        strings.TrimSpace(req.Name),
			Notes:       req.Notes,
			Thumbnail:   req.Thumbnail,
			IsFavourite: req.IsFavourite,
			ProfileID:   profile.ID,
		}
		linkRepo := links.NewRepository(tx)
		if err := linkRepo.Create(&created); err != nil {
			return err
		}

		tagList, err := tags.NewRepository(tx).GetOrCreateTags(cleanTagNames(req.Tags), nil)
		if err != nil {
			return err
		}
		if err := linkRepo.AttachTags(&created, tagList); err != nil {
			return err
		}
		created.Tags = tagList
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "profile")
		return
	}
	if err != nil {
		respondInternalError(c, err, "create link")
		return
	}

	lc.changed()
	respondCreated(c, created)
}

// GetLink returns one link with its tags
// GET /api/links/:id
func (lc *LinksController) GetLink(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	lc.respondLink(c, id)
}

// OpenLink records a launch and returns the target URI
// POST /api/links/:id/open
func (lc *LinksController) OpenLink(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := links.NewRepository(lc.db.DB).RecordOpen(id); err != nil {
		lc.respondMutationError(c, err, "open link")
		return
	}
	lc.changed()
	lc.respondLink(c, id)
}

// AddFavourite marks a link as favourite
// PUT /api/links/:id/favourite
func (lc *LinksController) AddFavourite(c *gin.Context) {
	lc.setFavourite(c, true)
}

// RemoveFavourite clears the favourite flag
// DELETE /api/links/:id/favourite
func (lc *LinksController) RemoveFavourite(c *gin.Context) {
	lc.setFavourite(c, false)
}

func (lc *LinksController) setFavourite(c *gin.Context, favourite bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := links.NewRepository(lc.db.DB).SetFavourite(id, favourite); err != nil {
		lc.respondMutationError(c, err, "set favourite")
		return
	}
	lc.changed()
	lc.respondLink(c, id)
}

// DeleteLink removes a link
// DELETE /api/links/:id
func (lc *LinksController) DeleteLink(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := links.NewRepository(lc.db.DB).Delete(id); err != nil {
		lc.respondMutationError(c, err, "delete link")
		return
	}
	if lc.notifier != nil {
		lc.notifier.LinksDeleted()
	}
	respondSuccess(c, "link deleted")
}

func (lc *LinksController) respondLink(c *gin.Context, id uint) {
	link, err := links.NewRepository(lc.db.DB).GetByID(id)
	if err != nil {
		lc.respondMutationError(c, err, "get link")
		return
	}
	c.JSON(http.StatusOK, link)
}

func (lc *LinksController) respondMutationError(c *gin.Context, err error, context string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "link")
		return
	}
	respondInternalError(c, err, context)
}

func (lc *LinksController) changed() {
	if lc.notifier != nil {
		lc.notifier.LinksChanged()
	}
}

// cleanTagNames trims names and drops blanks. Case is kept as given.
func cleanTagNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
