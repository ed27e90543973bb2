package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/deepr/internal/exporters"
)

// MarkdownSyncer rewrites the Markdown sync file.
type MarkdownSyncer interface {
	Sync(ctx context.Context) (int, error)
}

// MarkdownSyncTask rewrites the Markdown sync file from the store.
type MarkdownSyncTask struct{}

func (t MarkdownSyncTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "markdown_sync",
		MaxAttempts: 2,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func MarkdownSyncProcessor(syncer MarkdownSyncer) backlite.QueueProcessor[MarkdownSyncTask] {
	return func(ctx context.Context, task MarkdownSyncTask) error {
		if syncer == nil {
			return fmt.Errorf("markdown sync not configured")
		}

		n, err := syncer.Sync(ctx)
		if errors.Is(err, exporters.ErrMarkdownSyncDisabled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("markdown sync: %w", err)
		}

		log.Printf("[TASK] Markdown sync wrote %d links", n)
		return nil
	}
}

func NewMarkdownSyncQueue(syncer MarkdownSyncer) backlite.Queue {
	return backlite.NewQueue(MarkdownSyncProcessor(syncer))
}
