package tasks

import (
	"context"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// AutoBackupRunner performs one periodic CSV backup.
type AutoBackupRunner interface {
	RunBackup(ctx context.Context) error
}

// AutoBackupTask runs a periodic backup once. The next cron tick is the retry.
type AutoBackupTask struct{}

func (t AutoBackupTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "auto_backup",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
		},
	}
}

// AutoBackupProcessor swallows failures; the runner has already recorded them.
func AutoBackupProcessor(runner AutoBackupRunner) backlite.QueueProcessor[AutoBackupTask] {
	return func(ctx context.Context, task AutoBackupTask) error {
		if runner == nil {
			log.Printf("[TASK] Auto-backup runner not configured")
			return nil
		}
		if err := runner.RunBackup(ctx); err != nil {
			log.Printf("[TASK] Auto-backup failed: %v", err)
		}
		return nil
	}
}

func NewAutoBackupQueue(runner AutoBackupRunner) backlite.Queue {
	return backlite.NewQueue(AutoBackupProcessor(runner))
}
