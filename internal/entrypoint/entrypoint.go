package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/deepr/internal/auth"
	"github.com/mrlokans/deepr/internal/config"
	"github.com/mrlokans/deepr/internal/database/tags"
	http_controllers "github.com/mrlokans/deepr/internal/http"
	"github.com/mrlokans/deepr/internal/scheduler"
	"github.com/mrlokans/deepr/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill -2 is SIGINT, plain kill is SIGTERM; SIGKILL cannot be caught
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the listener so queued jobs are not cut mid-way.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting deepr v%s", version)

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	if app.Remote.IsAvailable() {
		log.Printf("Remote sync provider: %s", app.Remote.Provider())
	} else {
		log.Printf("Remote sync: not configured")
	}

	autoBackup := scheduler.NewAutoBackupScheduler(app.Settings, app.Exporter)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var jobs *tasks.Jobs
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.DefaultConfig()
		taskCfg.Workers = cfg.Tasks.Workers
		taskCfg.MaxAttempts = cfg.Tasks.MaxRetries
		taskCfg.RetryDelay = cfg.Tasks.RetryDelay
		taskCfg.TaskTimeout = cfg.Tasks.TaskTimeout
		taskCfg.ReleaseAfter = cfg.Tasks.ReleaseAfter
		taskCfg.CleanupInterval = cfg.Tasks.CleanupInterval
		taskCfg.DebounceDelay = cfg.Tasks.DebounceDelay
		taskCfg.AuditRetentionDays = cfg.Audit.RetentionDays

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewRemoteBackupQueue(app.Backup, taskCfg),
			tasks.NewMarkdownSyncQueue(app.MarkdownSync),
			tasks.NewAutoBackupQueue(autoBackup),
			tasks.NewPruneAuditQueue(app.Auditor),
			tasks.NewCleanupTagsQueue(tags.NewRepository(app.DB.DB)),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		taskClient.Start(taskCtx)

		jobs = tasks.NewJobs(taskClient, taskCfg)
		autoBackup.SetDispatcher(jobs.AutoBackup)
		if err := jobs.PruneAudit(taskCtx); err != nil {
			log.Printf("Failed to queue audit cleanup: %v", err)
		}
	} else {
		log.Printf("Task queue disabled: backups run inline and the Markdown sync file is only refreshed on request")
	}

	schedCtx, schedCancel := context.WithCancel(context.Background())
	if err := autoBackup.Start(schedCtx); err != nil {
		log.Printf("WARNING: auto-backup not scheduled: %v", err)
	}

	sqlDB, err := app.DB.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessions, err := auth.NewSessionManager(sqlDB, auth.SessionConfig{
		Lifetime:      cfg.Auth.SessionLifetime,
		SecureCookies: cfg.Auth.SecureCookies,
	})
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	if cfg.Auth.ReadOnly {
		log.Printf("Read-only mode: mutating API requests are rejected")
	}
	if cfg.Auth.APIToken == "" {
		log.Printf("WARNING: API_TOKEN is not set, the API is open to anyone who can reach it")
	}

	routerCfg := http_controllers.RouterConfig{
		Database:      app.DB,
		SettingsStore: app.Settings,
		Importer:      app.Importer,
		Exporter:      app.Exporter,
		Auditor:       app.Auditor,
		MarkdownSync:  app.MarkdownSync,
		Remote:        app.Remote,
		Backup:        app.Backup,
		Sessions:      sessions,
		Scheduler:     autoBackup,
		APIToken:      cfg.Auth.APIToken,
		SecureCookies: cfg.Auth.SecureCookies,
		ReadOnly:      cfg.Auth.ReadOnly,
		Version:       version,
	}
	// Interface fields stay nil rather than typed-nil when the queue is off.
	if jobs != nil {
		routerCfg.BackupQueue = jobs
		routerCfg.Notifier = jobs
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		autoBackup.Stop()
		schedCancel()
		if jobs != nil {
			jobs.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
