package entrypoint

import (
	"fmt"
	"log"
	"os"

	"github.com/mrlokans/deepr/internal/audit"
	"github.com/mrlokans/deepr/internal/backup"
	"github.com/mrlokans/deepr/internal/config"
	"github.com/mrlokans/deepr/internal/database"
	auditrepo "github.com/mrlokans/deepr/internal/database/audit"
	"github.com/mrlokans/deepr/internal/database/settings"
	"github.com/mrlokans/deepr/internal/exporters"
	"github.com/mrlokans/deepr/internal/importers"
	"github.com/mrlokans/deepr/internal/remotesync"
	"github.com/mrlokans/deepr/internal/settingsstore"
	"github.com/mrlokans/deepr/internal/tokenstore"
)

// App holds the services shared by the HTTP server and the CLI commands.
type App struct {
	DB           *database.Database
	Settings     *settingsstore.SettingsStore
	Auditor      *audit.Service
	Remote       remotesync.Adapter
	Importer     *importers.Pipeline
	Exporter     *exporters.Service
	MarkdownSync *exporters.MarkdownSync
	Backup       *backup.Service
}

// NewApp opens the link store and builds the pipelines on top of it.
func NewApp(cfg *config.Config) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	remote, err := NewRemoteAdapter(cfg.Remote, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := os.MkdirAll(cfg.Global.CacheDir, 0o755); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	store := settingsstore.New(settings.NewRepository(db.DB))
	auditor := audit.NewService(auditrepo.NewRepository(db.DB))

	var uploader exporters.Uploader
	if remote.IsAvailable() {
		uploader = remote
	}

	return &App{
		DB:           db,
		Settings:     store,
		Auditor:      auditor,
		Remote:       remote,
		Importer:     importers.NewPipeline(db, auditor),
		Exporter:     exporters.NewService(db, store, uploader, auditor),
		MarkdownSync: exporters.NewMarkdownSync(db, store),
		Backup:       backup.NewService(db, remote, store, auditor, cfg.Global.CacheDir),
	}, nil
}

func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

// NewRemoteAdapter selects the remote sync provider from configuration.
// Unknown providers are an error; "none" yields the no-op adapter.
func NewRemoteAdapter(cfg config.Remote, db *database.Database) (remotesync.Adapter, error) {
	switch cfg.Provider {
	case "", config.RemoteProviderNone:
		return remotesync.Noop{}, nil
	case config.RemoteProviderGDrive, config.RemoteProviderDropbox:
	default:
		return nil, fmt.Errorf("unknown remote sync provider %q", cfg.Provider)
	}

	if cfg.ClientID == "" {
		log.Printf("WARNING: REMOTE_SYNC_CLIENT_ID is not set, remote sync is disabled")
		return remotesync.Noop{}, nil
	}

	tokens, err := tokenstore.New(db.DB, tokenstore.Config{
		EncryptionKey: cfg.EncryptionKey,
		KeyFilePath:   cfg.KeyFilePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token store: %w", err)
	}

	remoteCfg := remotesync.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Timeout:      cfg.Timeout,
	}
	if cfg.Provider == config.RemoteProviderDropbox {
		return remotesync.NewDropbox(remoteCfg, tokens), nil
	}
	return remotesync.NewGoogleDrive(remoteCfg, tokens), nil
}
