package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrlokans/deepr/internal/auth"
	"github.com/mrlokans/deepr/internal/database/profiles"
	"github.com/mrlokans/deepr/internal/database/tags"
	"github.com/mrlokans/deepr/internal/readonly"
)

// RemoteCallbackPath is where the provider redirects after sign-in. It is
// reachable without the API token since the browser cannot send one.
const RemoteCallbackPath = "/api/remote/callback"

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	if cfg.Sessions != nil {
		router.Use(cfg.Sessions.LoadAndSave())
	}
	router.Use(auth.NewMiddleware(cfg.APIToken, RemoteCallbackPath).Handler())

	health := NewHealthController(cfg.Database, cfg.Remote, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(readonly.NewMiddleware(cfg.ReadOnly).Handler())

	// Link store
	linksController := NewLinksController(cfg.Database, cfg.Notifier)
	api.GET("/links", linksController.ListLinks)
	api.POST("/links", linksController.CreateLink)
	api.GET("/links/:id", linksController.GetLink)
	api.DELETE("/links/:id", linksController.DeleteLink)
	api.POST("/links/:id/open", linksController.OpenLink)
	api.PUT("/links/:id/favourite", linksController.AddFavourite)
	api.DELETE("/links/:id/favourite", linksController.RemoveFavourite)

	tagsController := NewTagsController(tags.NewRepository(cfg.Database.DB))
	api.GET("/tags", tagsController.GetAllTags)
	api.POST("/tags", tagsController.CreateTag)
	api.POST("/tags/cleanup", tagsController.CleanupOrphanTags)

	profileStore := profiles.NewRepository(cfg.Database.DB)
	profilesController := NewProfilesController(profileStore)
	api.GET("/profiles", profilesController.ListProfiles)
	api.POST("/profiles", profilesController.CreateProfile)

	// Import pipeline
	if cfg.Importer != nil {
		importController := NewImportController(cfg.Importer, profileStore, cfg.Notifier)
		api.POST("/import", importController.Import)
		api.POST("/import/preview", importController.Preview)
		api.POST("/import/commit", importController.Commit)
	}

	// Export pipeline
	if cfg.Exporter != nil {
		exportController := NewExportController(cfg.Database, cfg.SettingsStore, cfg.Exporter, cfg.MarkdownSync)
		api.POST("/export", exportController.Export)
		api.GET("/export/download", exportController.Download)
		api.POST("/markdown-sync", exportController.SyncMarkdown)
	}

	// Remote backup and restore
	if cfg.Backup != nil {
		backupController := NewBackupController(cfg.Backup, cfg.BackupQueue, cfg.Notifier)
		api.POST("/backup", backupController.Backup)
		api.POST("/restore", backupController.Restore)
		api.GET("/backup/status", backupController.Status)
	}

	if cfg.Remote != nil && cfg.Sessions != nil {
		var recorder AuthRecorder
		if cfg.Auditor != nil {
			recorder = cfg.Auditor
		}
		remoteController := NewRemoteController(cfg.Remote, cfg.Sessions, recorder)
		api.GET("/remote", remoteController.Status)
		api.POST("/remote/auth", remoteController.BeginAuth)
		router.GET(RemoteCallbackPath, remoteController.Callback)
		api.POST("/remote/sign-out", remoteController.SignOut)
	}

	// Settings
	if cfg.SettingsStore != nil {
		settingsController := NewSettingsController(cfg.SettingsStore, cfg.Scheduler)
		api.GET("/settings/export", settingsController.GetExportSettings)
		api.PUT("/settings/export", settingsController.UpdateExportSettings)
		api.GET("/settings/auto-backup", settingsController.GetAutoBackupSettings)
		api.PUT("/settings/auto-backup", settingsController.UpdateAutoBackupSettings)
		api.POST("/settings/auto-backup/run", settingsController.RunAutoBackup)
		api.POST("/settings/reset", settingsController.ResetSettings)
	}

	if cfg.Auditor != nil {
		auditController := NewAuditController(cfg.Auditor)
		api.GET("/audit", auditController.GetAuditEvents)
	}

	return router
}
