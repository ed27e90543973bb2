package tasks

import "time"

// Config holds configuration for the task queue.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 2
	Workers int

	// MaxAttempts bounds remote backup retries. Default: 3
	MaxAttempts int

	// RetryDelay is the backoff between remote backup attempts. Default: 1m
	RetryDelay time.Duration

	// TaskTimeout caps a single remote backup attempt. Default: 5m
	TaskTimeout time.Duration

	// ReleaseAfter hands stuck tasks back to the queue. Default: 15m
	ReleaseAfter time.Duration

	// CleanupInterval is how often finished tasks are purged. Default: 1h
	CleanupInterval time.Duration

	// DebounceDelay is how long link changes settle before a sync is queued. Default: 5s
	DebounceDelay time.Duration

	// AuditRetentionDays bounds how long audit events are kept. Default: 90
	AuditRetentionDays int
}

func DefaultConfig() Config {
	return Config{
		Workers:            2,
		MaxAttempts:        3,
		RetryDelay:         1 * time.Minute,
		TaskTimeout:        5 * time.Minute,
		ReleaseAfter:       15 * time.Minute,
		CleanupInterval:    1 * time.Hour,
		DebounceDelay:      5 * time.Second,
		AuditRetentionDays: 90,
	}
}
