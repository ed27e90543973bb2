package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

const defaultAuditRetentionDays = 90

type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// PruneAuditTask removes import, export and backup events past the retention window.
type PruneAuditTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t PruneAuditTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "prune_audit_events",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func PruneAuditProcessor(cleaner AuditEventCleaner) backlite.QueueProcessor[PruneAuditTask] {
	return func(ctx context.Context, task PruneAuditTask) error {
		if cleaner == nil {
			return fmt.Errorf("audit cleaner not configured")
		}

		days := task.RetentionDays
		if days <= 0 {
			days = defaultAuditRetentionDays
		}

		deleted, err := cleaner.DeleteOldEvents(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return fmt.Errorf("prune audit events: %w", err)
		}

		if deleted > 0 {
			log.Printf("[TASK] Pruned %d audit events older than %d days", deleted, days)
		}
		return nil
	}
}

func NewPruneAuditQueue(cleaner AuditEventCleaner) backlite.Queue {
	return backlite.NewQueue(PruneAuditProcessor(cleaner))
}
