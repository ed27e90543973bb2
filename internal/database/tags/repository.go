// Package tags provides database operations for tag management.
//
// Tag names are unique and case-sensitive as stored.
//
// # Usage
//
//	repo := tags.NewRepository(db)
//	tag, err := repo.GetOrCreateTag("news")
package tags

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/deepr/internal/entities"
)

// Repository handles all tag database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new tags repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateTag creates a new tag.
func (r *Repository) CreateTag(name string) (*entities.Tag, error) {
	tag := &entities.Tag{Name: name}
	if err := r.db.Create(tag).Error; err != nil {
		return nil, err
	}
	return tag, nil
}

// GetOrCreateTag retrieves a tag by exact name or creates it.
func (r *Repository) GetOrCreateTag(name string) (*entities.Tag, error) {
	var tag entities.Tag
	err := r.db.Where("name = ?", name).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.CreateTag(name)
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetOrCreateTags resolves a list of names, reusing cache across calls in one batch.
func (r *Repository) GetOrCreateTags(names []string, cache map[string]entities.Tag) ([]entities.Tag, error) {
	result := make([]entities.Tag, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		if tag, ok := cache[name]; ok {
			result = append(result, tag)
			continue
		}
		tag, err := r.GetOrCreateTag(name)
		if err != nil {
			return nil, err
		}
		if cache != nil {
			cache[name] = *tag
		}
		result = append(result, *tag)
	}
	return result, nil
}

// ListWithCounts returns all tags with the number of links carrying each.
func (r *Repository) ListWithCounts() ([]entities.TagWithCount, error) {
	var tags []entities.TagWithCount
	err := r.db.Table("tags").
		Select("tags.*, COUNT(link_tags.link_id) AS link_count").
		Joins("LEFT JOIN link_tags ON link_tags.tag_id = tags.id").
		Group("tags.id").
		Order("tags.name ASC").
		Scan(&tags).Error
	return tags, err
}

// DeleteOrphanTags removes tags that no link references.
func (r *Repository) DeleteOrphanTags() (int64, error) {
	result := r.db.Exec(`DELETE FROM tags WHERE id NOT IN (SELECT tag_id FROM link_tags)`)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteAll removes every tag. Callers clear link_tags first.
func (r *Repository) DeleteAll() error {
	return r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.Tag{}).Error
}
