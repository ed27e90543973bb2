package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/deepr/internal/backup"
	"github.com/mrlokans/deepr/internal/remotesync"
)

// BackupService moves the whole store to and from the remote provider.
type BackupService interface {
	Backup(ctx context.Context) (string, error)
	Restore(ctx context.Context) (backup.RestoreResult, error)
	Status(ctx context.Context) (remotesync.BackupStatus, error)
}

// BackupQueue enqueues remote backups for retried background execution.
type BackupQueue interface {
	RemoteBackup(ctx context.Context, reason string) (string, error)
}

type BackupController struct {
	service  BackupService
	queue    BackupQueue
	notifier ChangeNotifier
}

// NewBackupController creates the backup controller. Without a queue,
// backups run inside the request.
func NewBackupController(service BackupService, queue BackupQueue, notifier ChangeNotifier) *BackupController {
	return &BackupController{service: service, queue: queue, notifier: notifier}
}

// Backup uploads the store to the remote provider
// POST /api/backup?wait=true
func (bc *BackupController) Backup(c *gin.Context) {
	ctx := c.Request.Context()
	if bc.queue != nil && c.Query("wait") != "true" {
		taskID, err := bc.queue.RemoteBackup(ctx, "api")
		if err != nil {
			respondInternalError(c, err, "enqueue remote backup")
			return
		}
		respondAccepted(c, "backup queued", gin.H{"task_id": taskID})
		return
	}

	message, err := bc.service.Backup(ctx)
	if err != nil {
		respondPipelineError(c, err, "remote backup")
		return
	}
	respondSuccess(c, message)
}

// Restore replaces the store with the latest remote backup
// POST /api/restore
func (bc *BackupController) Restore(c *gin.Context) {
	result, err := bc.service.Restore(c.Request.Context())
	if err != nil {
		respondPipelineError(c, err, "restore")
		return
	}
	if bc.notifier != nil {
		bc.notifier.LinksDeleted()
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "backup restored", Data: result})
}

// Status reports whether a remote backup exists
// GET /api/backup/status
func (bc *BackupController) Status(c *gin.Context) {
	status, err := bc.service.Status(c.Request.Context())
	if err != nil {
		respondPipelineError(c, err, "backup status")
		return
	}
	c.JSON(http.StatusOK, status)
}
