// Package links provides database operations for stored links.
//
// # Usage
//
//	repo := links.NewRepository(db)
//	all, err := repo.ListAll()
package links

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/deepr/internal/entities"
)

// Repository handles all link database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new links repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a link without touching its tag associations.
func (r *Repository) Create(link *entities.Link) error {
	return r.db.Omit("Tags", "Profile").Create(link).Error
}

// GetByID retrieves a link with its tags.
func (r *Repository) GetByID(id uint) (*entities.Link, error) {
	var link entities.Link
	if err := r.db.Preload("Tags").First(&link, id).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// ListAll returns every link ordered by creation time ascending.
func (r *Repository) ListAll() ([]entities.Link, error) {
	var links []entities.Link
	err := r.db.Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("tags.name ASC")
	}).Preload("Profile").Order("created_at ASC, id ASC").Find(&links).Error
	return links, err
}

// ListForProfile returns a profile's links, newest first.
func (r *Repository) ListForProfile(profileID uint) ([]entities.Link, error) {
	var links []entities.Link
	err := r.db.Preload("Tags").
		Where("profile_id = ?", profileID).
		Order("created_at DESC, id DESC").
		Find(&links).Error
	return links, err
}

// Filter narrows Find. Zero values match everything.
type Filter struct {
	ProfileID     uint
	Tag           string
	FavouriteOnly bool
	// Query matches a substring of the link or its name.
	Query  string
	Limit  int
	Offset int
}

// Find returns matching links newest first, plus the total before paging.
func (r *Repository) Find(f Filter) ([]entities.Link, int64, error) {
	q := r.db.Model(&entities.Link{})
	if f.ProfileID != 0 {
		q = q.Where("links.profile_id = ?", f.ProfileID)
	}
	if f.FavouriteOnly {
		q = q.Where("links.is_favourite = ?", true)
	}
	if f.Query != "" {
		like := "%" + f.Query + "%"
		q = q.Where("links.link LIKE ? OR links.name LIKE ?", like, like)
	}
	if f.Tag != "" {
		q = q.Where("links.id IN (?)", r.db.Table("link_tags").
			Select("link_tags.link_id").
			Joins("JOIN tags ON tags.id = link_tags.tag_id").
			Where("tags.name = ?", f.Tag))
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Preload("Tags").Order("links.created_at DESC, links.id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var links []entities.Link
	if err := q.Find(&links).Error; err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

// Count returns the total number of stored links.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Link{}).Count(&count).Error
	return count, err
}

// ExistingURIs returns the set of link URIs already stored under a profile.
func (r *Repository) ExistingURIs(profileID uint) (map[string]struct{}, error) {
	var uris []string
	if err := r.db.Model(&entities.Link{}).Where("profile_id = ?", profileID).Pluck("link", &uris).Error; err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(uris))
	for _, u := range uris {
		set[u] = struct{}{}
	}
	return set, nil
}

// AttachTags associates existing tags with a link.
func (r *Repository) AttachTags(link *entities.Link, tags []entities.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	return r.db.Model(link).Association("Tags").Append(tags)
}

// RecordOpen increments the usage counter and stamps the last-opened time.
func (r *Repository) RecordOpen(id uint) error {
	now := time.Now()
	result := r.db.Model(&entities.Link{}).Where("id = ?", id).Updates(map[string]interface{}{
		"opened_count":   gorm.Expr("opened_count + 1"),
		"last_opened_at": now,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetFavourite updates the favourite flag.
func (r *Repository) SetFavourite(id uint, favourite bool) error {
	result := r.db.Model(&entities.Link{}).Where("id = ?", id).Update("is_favourite", favourite)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a link and its tag associations.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM link_tags WHERE link_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Link{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// DeleteAll removes every link and link-tag association.
func (r *Repository) DeleteAll() error {
	if err := r.db.Exec("DELETE FROM link_tags").Error; err != nil {
		return err
	}
	return r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.Link{}).Error
}
