package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

type OrphanTagsCleaner interface {
	DeleteOrphanTags() (int64, error)
}

// CleanupTagsTask drops tags left without links after deletions.
type CleanupTagsTask struct{}

func (t CleanupTagsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_tags",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: true,
		},
	}
}

func CleanupTagsProcessor(cleaner OrphanTagsCleaner) backlite.QueueProcessor[CleanupTagsTask] {
	return func(ctx context.Context, task CleanupTagsTask) error {
		if cleaner == nil {
			return fmt.Errorf("tag cleaner not configured")
		}

		deleted, err := cleaner.DeleteOrphanTags()
		if err != nil {
			return fmt.Errorf("cleanup tags: %w", err)
		}

		if deleted > 0 {
			log.Printf("[TASK] Removed %d unused tags", deleted)
		}
		return nil
	}
}

func NewCleanupTagsQueue(cleaner OrphanTagsCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupTagsProcessor(cleaner))
}
