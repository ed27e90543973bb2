package entities

import (
	"time"
)

// OAuthProvider identifies a remote sync provider.
type OAuthProvider string

const (
	OAuthProviderGoogleDrive OAuthProvider = "gdrive"
	OAuthProviderDropbox     OAuthProvider = "dropbox"
)

// OAuthToken stores encrypted remote provider credentials, one row per provider.
type OAuthToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Provider OAuthProvider `gorm:"type:varchar(50);not null;uniqueIndex" json:"provider"`

	// Base64 XChaCha20-Poly1305 ciphertext
	AccessToken  string `gorm:"type:text;not null" json:"-"`
	RefreshToken string `gorm:"type:text" json:"-"`

	TokenType string     `gorm:"type:varchar(50);default:Bearer" json:"token_type"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	LastRefreshedAt *time.Time `json:"last_refreshed_at,omitempty"`
}

func (OAuthToken) TableName() string {
	return "oauth_tokens"
}

// IsExpired reports whether less than five minutes of validity remain.
func (t *OAuthToken) IsExpired() bool {
	if t.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(5 * time.Minute).After(*t.ExpiresAt)
}
