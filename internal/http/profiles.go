package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/deepr/internal/entities"
)

type ProfileStore interface {
	List() ([]entities.Profile, error)
	GetByName(name string) (*entities.Profile, error)
	Create(profile *entities.Profile) error
}

type ProfilesController struct {
	store ProfileStore
}

func NewProfilesController(store ProfileStore) *ProfilesController {
	return &ProfilesController{store: store}
}

// ListProfiles returns every profile
// GET /api/profiles
func (pc *ProfilesController) ListProfiles(c *gin.Context) {
	profiles, err := pc.store.List()
	if err != nil {
		respondInternalError(c, err, "list profiles")
		return
	}
	c.JSON(http.StatusOK, profiles)
}

// CreateProfile adds a profile; names are unique
// POST /api/profiles
func (pc *ProfilesController) CreateProfile(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		respondBadRequest(c, "name is required")
		return
	}
	name := strings.TrimSpace(req.Name)

	if _, err := pc.store.GetByName(name); err == nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "profile already exists", Code: "profile_exists"})
		return
	}

	profile := &entities.Profile{Name: name}
	if err := pc.store.Create(profile); err != nil {
		respondInternalError(c, err, "create profile")
		return
	}
	respondCreated(c, profile)
}
