package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/deepr/internal/entities"
)

// TagStore defines database operations for tag management.
type TagStore interface {
	ListWithCounts() ([]entities.TagWithCount, error)
	GetOrCreateTag(name string) (*entities.Tag, error)
	DeleteOrphanTags() (int64, error)
}

type TagsController struct {
	store TagStore
}

func NewTagsController(store TagStore) *TagsController {
	return &TagsController{store: store}
}

// GetAllTags returns all tags with their link counts
// GET /api/tags
func (tc *TagsController) GetAllTags(c *gin.Context) {
	tags, err := tc.store.ListWithCounts()
	if err != nil {
		respondInternalError(c, err, "get all tags")
		return
	}
	if tags == nil {
		tags = []entities.TagWithCount{}
	}
	c.JSON(http.StatusOK, tags)
}

// CreateTag creates a tag, or returns the existing one
// POST /api/tags
func (tc *TagsController) CreateTag(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		respondBadRequest(c, "name is required")
		return
	}

	tag, err := tc.store.GetOrCreateTag(strings.TrimSpace(req.Name))
	if err != nil {
		respondInternalError(c, err, "create tag")
		return
	}
	respondCreated(c, tag)
}

// CleanupOrphanTags removes tags no link uses
// POST /api/tags/cleanup
func (tc *TagsController) CleanupOrphanTags(c *gin.Context) {
	deleted, err := tc.store.DeleteOrphanTags()
	if err != nil {
		respondInternalError(c, err, "cleanup tags")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
