package entities

import (
	"time"
)

// DefaultProfileName is seeded on first start so every link has an owner.
const DefaultProfileName = "Personal"

type Profile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Links     []Link    `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"-"`
}

type Link struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Link         string     `gorm:"index:idx_links_profile_link;size:4096;not null" json:"link"`
	Name         string     `gorm:"size:1024" json:"name"`
	Notes        string     `gorm:"type:text" json:"notes,omitempty"`
	Thumbnail    string     `gorm:"size:2048" json:"thumbnail,omitempty"`
	OpenedCount  int        `gorm:"default:0" json:"opened_count"`
	IsFavourite  bool       `gorm:"default:false" json:"is_favourite"`
	LastOpenedAt *time.Time `json:"last_opened_at,omitempty"`
	ProfileID    uint       `gorm:"index:idx_links_profile_link;not null" json:"profile_id"`
	Profile      Profile    `gorm:"foreignKey:ProfileID" json:"-"`
	Tags         []Tag      `gorm:"many2many:link_tags;constraint:OnDelete:CASCADE" json:"tags,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TagNames returns the names of the link's tags in stored order.
func (l *Link) TagNames() []string {
	names := make([]string, 0, len(l.Tags))
	for _, t := range l.Tags {
		names = append(names, t.Name)
	}
	return names
}

type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TagWithCount carries the derived number of links associated with a tag.
type TagWithCount struct {
	Tag
	LinkCount int64 `json:"link_count"`
}
