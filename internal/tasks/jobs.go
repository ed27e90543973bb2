package tasks

import (
	"context"
	"log"

	"github.com/mikestefanello/backlite"
)

// Enqueuer persists a task for the workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// Jobs is what the rest of the app uses to request background work.
type Jobs struct {
	queue              Enqueuer
	debouncer          *Debouncer
	auditRetentionDays int
}

func NewJobs(queue Enqueuer, cfg Config) *Jobs {
	return &Jobs{
		queue:              queue,
		debouncer:          NewDebouncer(cfg.DebounceDelay),
		auditRetentionDays: cfg.AuditRetentionDays,
	}
}

// LinksChanged queues a Markdown sync once a burst of edits settles.
func (j *Jobs) LinksChanged() {
	j.debounced(MarkdownSyncTask{})
}

// LinksDeleted also queues tag cleanup.
func (j *Jobs) LinksDeleted() {
	j.debounced(MarkdownSyncTask{})
	j.debounced(CleanupTagsTask{})
}

func (j *Jobs) RemoteBackup(ctx context.Context, reason string) (string, error) {
	return j.queue.Enqueue(ctx, RemoteBackupTask{Reason: reason})
}

// AutoBackup matches scheduler.Dispatcher.
func (j *Jobs) AutoBackup(ctx context.Context) error {
	_, err := j.queue.Enqueue(ctx, AutoBackupTask{})
	return err
}

func (j *Jobs) PruneAudit(ctx context.Context) error {
	_, err := j.queue.Enqueue(ctx, PruneAuditTask{RetentionDays: j.auditRetentionDays})
	return err
}

// Stop drops debounced jobs that have not been queued yet.
func (j *Jobs) Stop() {
	j.debouncer.Stop()
}

func (j *Jobs) debounced(task backlite.Task) {
	name := task.Config().Name
	j.debouncer.Schedule(name, func() {
		if _, err := j.queue.Enqueue(context.Background(), task); err != nil {
			log.Printf("[TASK ERROR] %v", err)
		}
	})
}
