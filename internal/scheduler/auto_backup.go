package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/deepr/internal/exporters"
	"github.com/mrlokans/deepr/internal/formats"
	"github.com/mrlokans/deepr/internal/settingsstore"
)

var ErrAutoBackupDirectory = errors.New("auto-backup directory not configured")

// Exporter writes the link store through a codec.
type Exporter interface {
	Export(ctx context.Context, req exporters.Request) (string, error)
}

// Dispatcher hands a triggered backup to someone else, typically a task queue.
type Dispatcher func(ctx context.Context) error

// AutoBackupScheduler writes a CSV backup into the export directory on a cron schedule.
type AutoBackupScheduler struct {
	settingsStore *settingsstore.SettingsStore
	exporter      Exporter
	dispatch      Dispatcher

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
	// parent is the context Start was last given; Reschedule reuses it.
	parent context.Context
	// gen identifies the current run so a stale watcher cannot stop a newer one.
	gen uint64
}

// NewAutoBackupScheduler creates a new scheduler instance. Overlapping triggers
// are skipped while a backup is still running.
func NewAutoBackupScheduler(settingsStore *settingsstore.SettingsStore, exporter Exporter) *AutoBackupScheduler {
	return &AutoBackupScheduler{
		settingsStore: settingsStore,
		exporter:      exporter,
		cron: cron.New(
			cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
	}
}

// SetDispatcher routes cron triggers through fn instead of running the backup inline.
func (s *AutoBackupScheduler) SetDispatcher(fn Dispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatch = fn
}

// Start begins the scheduler if auto-backup is enabled
func (s *AutoBackupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	s.parent = ctx

	config := s.settingsStore.GetAutoBackupConfig()

	if !config.Enabled {
		log.Printf("Auto-backup scheduler: disabled")
		return nil
	}

	if config.Directory == "" {
		log.Printf("Auto-backup scheduler: backup directory not configured, skipping")
		return nil
	}

	if err := settingsstore.ValidateCronSchedule(config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", config.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(config.Schedule, s.trigger)
	if err != nil {
		return fmt.Errorf("failed to schedule auto-backup job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true
	s.gen++
	gen := s.gen

	nextRun, _ := settingsstore.GetNextRunTime(config.Schedule)
	log.Printf("Auto-backup scheduler: started with schedule '%s' (%s). Next run: %v",
		config.Schedule,
		settingsstore.GetCronDescription(config.Schedule),
		nextRun)

	go func() {
		<-cancelCtx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen == gen {
			s.stopLocked()
		}
	}()

	return nil
}

// Stop waits for a running backup and removes the scheduled entry.
func (s *AutoBackupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *AutoBackupScheduler) stopLocked() {
	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron.Remove(s.entryID)

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Auto-backup scheduler: stopped")
}

// Reschedule replaces the schedule (call after settings change)
func (s *AutoBackupScheduler) Reschedule() error {
	s.mu.Lock()
	s.stopLocked()
	parent := s.parent
	s.mu.Unlock()

	if parent == nil || parent.Err() != nil {
		parent = context.Background()
	}
	return s.Start(parent)
}

// RunNow triggers an immediate backup
func (s *AutoBackupScheduler) RunNow() {
	go s.trigger()
}

func (s *AutoBackupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next backup will occur
func (s *AutoBackupScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *AutoBackupScheduler) trigger() {
	s.mu.RLock()
	dispatch := s.dispatch
	s.mu.RUnlock()

	ctx := context.Background()
	if dispatch != nil {
		if err := dispatch(ctx); err != nil {
			log.Printf("Auto-backup: failed to dispatch: %v", err)
		}
		return
	}
	_ = s.RunBackup(ctx)
}

// RunBackup performs one CSV backup and records its status. The error is
// returned for logging only; callers are not expected to retry.
func (s *AutoBackupScheduler) RunBackup(ctx context.Context) error {
	config := s.settingsStore.GetAutoBackupConfig()

	if !config.Enabled {
		log.Printf("Auto-backup: skipped (disabled)")
		return nil
	}

	if config.Directory == "" {
		log.Printf("Auto-backup: skipped (backup directory not configured)")
		_ = s.settingsStore.SetAutoBackupStatus("failed", "Backup directory not configured")
		return ErrAutoBackupDirectory
	}

	startTime := time.Now()
	msg, err := s.exporter.Export(ctx, exporters.Request{
		Format:      formats.FormatCSV,
		Destination: config.Directory,
		Auto:        true,
	})
	if err != nil {
		errMsg := fmt.Sprintf("Backup failed: %v", err)
		log.Printf("Auto-backup: %s", errMsg)
		_ = s.settingsStore.SetAutoBackupStatus("failed", errMsg)
		return err
	}

	msg = fmt.Sprintf("%s in %v", msg, time.Since(startTime).Round(time.Millisecond))
	log.Printf("Auto-backup: %s", msg)
	_ = s.settingsStore.SetAutoBackupStatus("success", msg)
	return nil
}
