// Package profiles provides database operations for link profiles.
package profiles

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/deepr/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(profile *entities.Profile) error {
	return r.db.Omit("Links").Create(profile).Error
}

func (r *Repository) GetByID(id uint) (*entities.Profile, error) {
	var profile entities.Profile
	if err := r.db.First(&profile, id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *Repository) GetByName(name string) (*entities.Profile, error) {
	var profile entities.Profile
	if err := r.db.Where("name = ?", name).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetOrCreate resolves a profile by name, creating it when missing.
func (r *Repository) GetOrCreate(name string) (*entities.Profile, error) {
	profile, err := r.GetByName(name)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	profile = &entities.Profile{Name: name}
	if err := r.Create(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// List returns all profiles ordered by creation.
func (r *Repository) List() ([]entities.Profile, error) {
	var profiles []entities.Profile
	err := r.db.Order("created_at ASC, id ASC").Find(&profiles).Error
	return profiles, err
}

// DeleteAll removes every profile. Callers remove links first.
func (r *Repository) DeleteAll() error {
	return r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.Profile{}).Error
}
