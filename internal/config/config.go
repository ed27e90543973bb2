package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Remote sync providers selectable with REMOTE_SYNC_PROVIDER.
const (
	RemoteProviderNone    = "none"
	RemoteProviderGDrive  = "gdrive"
	RemoteProviderDropbox = "dropbox"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Audit
		Remote
		Tasks
		Auth
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
		// CacheDir stages backup envelopes before upload.
		CacheDir string
	}
	Database struct {
		Path string
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 90)
	}
	Remote struct {
		Provider     string // none, gdrive or dropbox
		ClientID     string
		ClientSecret string
		RedirectURL  string
		Timeout      time.Duration

		// Token encryption; see tokenstore.Config
		EncryptionKey string
		KeyFilePath   string
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		MaxRetries      int
		RetryDelay      time.Duration
		TaskTimeout     time.Duration
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
		DebounceDelay   time.Duration
	}
	Auth struct {
		// APIToken protects /api when set. Empty leaves the API open.
		APIToken        string
		SessionLifetime time.Duration
		SecureCookies   bool // Set to false for local dev without HTTPS
		ReadOnly        bool
	}
)

// LoadDotEnv reads .env files into the environment. Missing files are ignored
// and variables that are already set win.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("cache_dir", "./cache")
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("audit_retention_days", 90)

	// Remote sync defaults
	v.SetDefault("remote_sync_provider", RemoteProviderNone)
	v.SetDefault("remote_sync_redirect_url", "http://localhost:8188/api/remote/callback")
	v.SetDefault("remote_sync_timeout", "30s")
	v.SetDefault("token_key_file", "")

	// Auth defaults
	v.SetDefault("api_token", "")
	v.SetDefault("session_lifetime", "1h")
	v.SetDefault("secure_cookies", false)
	v.SetDefault("read_only", false)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_debounce_delay", "5s")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
			CacheDir:                 v.GetString("CACHE_DIR"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Remote: Remote{
			Provider:      strings.ToLower(strings.TrimSpace(v.GetString("REMOTE_SYNC_PROVIDER"))),
			ClientID:      v.GetString("REMOTE_SYNC_CLIENT_ID"),
			ClientSecret:  v.GetString("REMOTE_SYNC_CLIENT_SECRET"),
			RedirectURL:   v.GetString("REMOTE_SYNC_REDIRECT_URL"),
			Timeout:       v.GetDuration("REMOTE_SYNC_TIMEOUT"),
			EncryptionKey: v.GetString("TOKEN_ENCRYPTION_KEY"),
			KeyFilePath:   v.GetString("TOKEN_KEY_FILE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			MaxRetries:      v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:      v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:     v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
			DebounceDelay:   v.GetDuration("TASK_DEBOUNCE_DELAY"),
		},
		Auth: Auth{
			APIToken:        v.GetString("API_TOKEN"),
			SessionLifetime: v.GetDuration("SESSION_LIFETIME"),
			SecureCookies:   v.GetBool("SECURE_COOKIES"),
			ReadOnly:        v.GetBool("READ_ONLY"),
		},
	}
}
