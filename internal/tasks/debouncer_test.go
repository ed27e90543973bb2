package tasks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_BurstFiresOnce(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var fired atomic.Int32
	var last atomic.Int32

	for i := 1; i <= 5; i++ {
		n := int32(i)
		d.Schedule("sync", func() {
			fired.Add(1)
			last.Store(n)
		})
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, d.Pending("sync"))

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, int32(5), last.Load(), "the newest job replaces pending ones")
	assert.False(t, d.Pending("sync"))
}

func TestDebouncer_NamesAreIndependent(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var a, b atomic.Int32

	d.Schedule("a", func() { a.Add(1) })
	d.Schedule("b", func() { b.Add(1) })

	require.Eventually(t, func() bool { return a.Load() == 1 && b.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestDebouncer_StopDropsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var fired atomic.Int32

	d.Schedule("sync", func() { fired.Add(1) })
	d.Stop()
	d.Schedule("sync", func() { fired.Add(1) })

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, fired.Load())
	assert.False(t, d.Pending("sync"))
}

type recordingQueue struct {
	mu    sync.Mutex
	names []string
	tasks []backlite.Task
}

func (q *recordingQueue) Enqueue(_ context.Context, task backlite.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.names = append(q.names, task.Config().Name)
	q.tasks = append(q.tasks, task)
	return "id", nil
}

func (q *recordingQueue) snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.names...)
}

func TestJobs_DebouncesLinkChanges(t *testing.T) {
	q := &recordingQueue{}
	cfg := DefaultConfig()
	cfg.DebounceDelay = 20 * time.Millisecond
	jobs := NewJobs(q, cfg)
	defer jobs.Stop()

	jobs.LinksChanged()
	jobs.LinksChanged()
	jobs.LinksDeleted()

	require.Eventually(t, func() bool { return len(q.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.ElementsMatch(t, []string{"markdown_sync", "cleanup_tags"}, q.snapshot())
}

func TestJobs_ImmediateTasks(t *testing.T) {
	q := &recordingQueue{}
	jobs := NewJobs(q, DefaultConfig())
	defer jobs.Stop()
	ctx := context.Background()

	_, err := jobs.RemoteBackup(ctx, "manual")
	require.NoError(t, err)
	require.NoError(t, jobs.AutoBackup(ctx))
	require.NoError(t, jobs.PruneAudit(ctx))

	assert.Equal(t, []string{"remote_backup", "auto_backup", "prune_audit_events"}, q.snapshot())
	assert.Equal(t, RemoteBackupTask{Reason: "manual"}, q.tasks[0])
	assert.Equal(t, PruneAuditTask{RetentionDays: 90}, q.tasks[2])
}
