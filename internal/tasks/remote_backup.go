package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/deepr/internal/backup"
)

// RemoteBackuper uploads the backup envelope.
type RemoteBackuper interface {
	Backup(ctx context.Context) (string, error)
}

// RemoteBackupTask uploads the envelope to the remote sync provider.
type RemoteBackupTask struct {
	Reason string `json:"reason,omitempty"`
}

// Config holds the default retry policy; NewRemoteBackupQueue applies
// the configured one.
func (t RemoteBackupTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "remote_backup",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RemoteBackupProcessor retries transport failures. A missing provider or
// sign-in will not fix itself, so those finish the task without a retry.
func RemoteBackupProcessor(backuper RemoteBackuper) backlite.QueueProcessor[RemoteBackupTask] {
	return func(ctx context.Context, task RemoteBackupTask) error {
		if backuper == nil {
			return fmt.Errorf("remote backup not configured")
		}

		msg, err := backuper.Backup(ctx)
		switch {
		case errors.Is(err, backup.ErrRemoteUnavailable), errors.Is(err, backup.ErrNotAuthenticated):
			log.Printf("[TASK] Remote backup skipped (%s): %v", task.Reason, err)
			return nil
		case err != nil:
			return fmt.Errorf("remote backup: %w", err)
		}

		log.Printf("[TASK] Remote backup (%s): %s", task.Reason, msg)
		return nil
	}
}

// NewRemoteBackupQueue registers the processor with the retry settings from
// cfg. Zero values keep the task defaults.
func NewRemoteBackupQueue(backuper RemoteBackuper, cfg Config) backlite.Queue {
	q := backlite.NewQueue(RemoteBackupProcessor(backuper))
	qc := q.Config()
	if cfg.MaxAttempts > 0 {
		qc.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.RetryDelay > 0 {
		qc.Backoff = cfg.RetryDelay
	}
	if cfg.TaskTimeout > 0 {
		qc.Timeout = cfg.TaskTimeout
	}
	return q
}
