// Package tokenstore keeps remote provider OAuth tokens encrypted at rest.
package tokenstore

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/deepr/internal/crypto"
	"github.com/mrlokans/deepr/internal/entities"
)

const (
	EnvEncryptionKey   = "TOKEN_ENCRYPTION_KEY"
	DefaultKeyFileName = ".deepr-token-key"
)

type TokenStore struct {
	db        *gorm.DB
	encryptor *crypto.Encryptor
}

type Config struct {
	// EncryptionKey is the base64-encoded 32-byte key. When empty the
	// environment and then the key file are consulted.
	EncryptionKey string

	// KeyFilePath defaults to ~/.deepr-token-key
	KeyFilePath string
}

// New creates a token store on top of an already migrated database.
func New(db *gorm.DB, cfg Config) (*TokenStore, error) {
	key, err := resolveEncryptionKey(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve encryption key: %w", err)
	}

	encryptor, err := crypto.NewEncryptorFromBase64(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}

	return &TokenStore{db: db, encryptor: encryptor}, nil
}

func resolveEncryptionKey(cfg Config) (string, error) {
	if cfg.EncryptionKey != "" {
		return cfg.EncryptionKey, nil
	}
	if envKey := os.Getenv(EnvEncryptionKey); envKey != "" {
		return envKey, nil
	}

	keyFilePath := GetKeyFilePath(cfg.KeyFilePath)
	if data, err := os.ReadFile(keyFilePath); err == nil {
		return string(data), nil
	}

	newKey, err := crypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate encryption key: %w", err)
	}
	if err := os.WriteFile(keyFilePath, []byte(newKey), 0600); err != nil {
		return "", fmt.Errorf("failed to save encryption key to %s: %w", keyFilePath, err)
	}

	log.Printf("Generated new token encryption key at %s", keyFilePath)
	return newKey, nil
}

// SaveToken encrypts and upserts the token for provider.
func (s *TokenStore) SaveToken(provider entities.OAuthProvider, token *oauth2.Token) error {
	encAccess, err := s.encryptor.Encrypt(token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	encRefresh, err := s.encryptor.Encrypt(token.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	row := entities.OAuthToken{
		Provider:     provider,
		AccessToken:  encAccess,
		RefreshToken: encRefresh,
		TokenType:    token.TokenType,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		row.ExpiresAt = &expiry
	}
	updates := []string{"access_token", "token_type", "expires_at", "updated_at"}
	// A refresh response may omit the refresh token; keep the stored one.
	if token.RefreshToken != "" {
		updates = append(updates, "refresh_token")
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// LoadToken returns the decrypted token for provider, or nil when none is stored.
func (s *TokenStore) LoadToken(provider entities.OAuthProvider) (*oauth2.Token, error) {
	var row entities.OAuthToken
	err := s.db.Where("provider = ?", provider).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	access, err := s.encryptor.Decrypt(row.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	refresh, err := s.encryptor.Decrypt(row.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	token := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    row.TokenType,
	}
	if row.ExpiresAt != nil {
		token.Expiry = *row.ExpiresAt
	}
	return token, nil
}

func (s *TokenStore) DeleteToken(provider entities.OAuthProvider) error {
	if err := s.db.Where("provider = ?", provider).Delete(&entities.OAuthToken{}).Error; err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

func (s *TokenStore) markRefreshed(provider entities.OAuthProvider) {
	now := time.Now()
	err := s.db.Model(&entities.OAuthToken{}).
		Where("provider = ?", provider).
		Update("last_refreshed_at", now).Error
	if err != nil {
		log.Printf("Failed to record token refresh for %s: %v", provider, err)
	}
}

// TokenSource wraps src so that every token differing from stored is written
// back to the store.
func (s *TokenStore) TokenSource(provider entities.OAuthProvider, stored *oauth2.Token, src oauth2.TokenSource) oauth2.TokenSource {
	ps := &persistingSource{store: s, provider: provider, src: src}
	if stored != nil {
		ps.last = stored.AccessToken
	}
	return ps
}

type persistingSource struct {
	store    *TokenStore
	provider entities.OAuthProvider
	src      oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	token, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if token.AccessToken != p.last {
		if err := p.store.SaveToken(p.provider, token); err != nil {
			log.Printf("Failed to persist refreshed %s token: %v", p.provider, err)
		} else {
			p.store.markRefreshed(p.provider)
		}
	}
	p.last = token.AccessToken
	return token, nil
}

// GetKeyFilePath returns the key file in use, defaulting to the home directory.
func GetKeyFilePath(customPath string) string {
	if customPath != "" {
		return customPath
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultKeyFileName
	}
	return filepath.Join(homeDir, DefaultKeyFileName)
}
