package exporters

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/deepr/internal/database"
	"github.com/mrlokans/deepr/internal/database/links"
	"github.com/mrlokans/deepr/internal/database/profiles"
	"github.com/mrlokans/deepr/internal/database/settings"
	"github.com/mrlokans/deepr/internal/database/tags"
	"github.com/mrlokans/deepr/internal/entities"
	"github.com/mrlokans/deepr/internal/formats"
	"github.com/mrlokans/deepr/internal/settingsstore"
)

type fakeUploader struct {
	name string
	data []byte
	err  error
}

func (f *fakeUploader) UploadFile(_ context.Context, name string, content io.Reader) error {
	if f.err != nil {
		return f.err
	}
	f.name = name
	f.data, _ = io.ReadAll(content)
	return nil
}

type exportCall struct {
	format string
	auto   bool
	err    error
}

type fakeRecorder struct{ calls []exportCall }

func (f *fakeRecorder) LogExport(format, _ string, auto bool, err error) {
	f.calls = append(f.calls, exportCall{format: format, auto: auto, err: err})
}

type fixture struct {
	db       *database.Database
	settings *settingsstore.SettingsStore
	uploader *fakeUploader
	recorder *fakeRecorder
	service  *Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := settingsstore.New(settings.NewRepository(db.DB))
	f := &fixture{db: db, settings: store, uploader: &fakeUploader{}, recorder: &fakeRecorder{}}
	f.service = NewService(db, store, f.uploader, f.recorder)
	f.service.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC) }
	return f
}

func (f *fixture) addLink(t *testing.T, uri string, created time.Time, tagNames ...string) {
	t.Helper()
	profile, err := profiles.NewRepository(f.db.DB).GetByName(entities.DefaultProfileName)
	require.NoError(t, err)

	link := entities.Link{Link: uri, Name: uri, ProfileID: profile.ID, CreatedAt: created}
	repo := links.NewRepository(f.db.DB)
	require.NoError(t, repo.Create(&link))
	tagList, err := tags.NewRepository(f.db.DB).GetOrCreateTags(tagNames, nil)
	require.NoError(t, err)
	require.NoError(t, repo.AttachTags(&link, tagList))
}

func TestExport_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.settings.SetExportEnabled(false))
		_, err := f.service.Export(ctx, Request{Format: formats.FormatCSV, Destination: t.TempDir()})
		assert.ErrorIs(t, err, ErrExportDisabled)
		require.Len(t, f.recorder.calls, 1)
		assert.ErrorIs(t, f.recorder.calls[0].err, ErrExportDisabled)
	})

	t.Run("no destination", func(t *testing.T) {
		f := setup(t)
		_, err := f.service.Export(ctx, Request{Format: formats.FormatCSV})
		assert.ErrorIs(t, err, ErrNoDestination)
	})

	t.Run("no data writes nothing", func(t *testing.T) {
		f := setup(t)
		dir := t.TempDir()
		_, err := f.service.Export(ctx, Request{Format: formats.FormatCSV, Destination: dir})
		assert.ErrorIs(t, err, ErrNoData)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.Nil(t, f.settings.GetExportLastAt())
	})

	t.Run("text cannot be encoded", func(t *testing.T) {
		f := setup(t)
		f.addLink(t, "https://a.example", time.Now())
		_, err := f.service.Export(ctx, Request{Format: formats.FormatText, Destination: t.TempDir()})
		assert.ErrorIs(t, err, formats.ErrEncodeNotSupported)
	})
}

func TestExport_ManualToDirectory(t *testing.T) {
	f := setup(t)
	f.addLink(t, "https://b.example", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "news")
	f.addLink(t, "https://a.example", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	dir := t.TempDir()
	require.NoError(t, f.settings.SetExportDestination(dir))

	msg, err := f.service.Export(context.Background(), Request{Format: formats.FormatCSV})
	require.NoError(t, err)
	assert.Contains(t, msg, "Exported 2 links")

	data, err := os.ReadFile(filepath.Join(dir, "deepr_export_20240309_140506.csv"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "https://a.example,"), "oldest link first")
	assert.Contains(t, lines[2], "news")
	assert.Contains(t, lines[2], entities.DefaultProfileName)

	require.NotNil(t, f.settings.GetExportLastAt())
}

func TestExport_AutoBackupReusesFileName(t *testing.T) {
	f := setup(t)
	f.addLink(t, "https://a.example", time.Now())
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		_, err := f.service.Export(context.Background(), Request{Format: formats.FormatCSV, Destination: dir, Auto: true})
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "deepr_backup.csv", entries[0].Name())
	assert.True(t, f.recorder.calls[0].auto)
}

func TestExport_SingleFileTruncates(t *testing.T) {
	f := setup(t)
	f.addLink(t, "https://a.example", time.Now())

	target := filepath.Join(t.TempDir(), "links.html")
	require.NoError(t, os.WriteFile(target, bytes.Repeat([]byte("x"), 100000), 0644))

	_, err := f.service.Export(context.Background(), Request{Format: formats.FormatHTML, Destination: "file:" + target})
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "xxxx")
	assert.Contains(t, string(data), `HREF="https://a.example"`)
}

func TestExport_Remote(t *testing.T) {
	f := setup(t)
	f.addLink(t, "https://a.example", time.Now())

	msg, err := f.service.Export(context.Background(), Request{Format: formats.FormatJSON, Destination: "remote:"})
	require.NoError(t, err)
	assert.Contains(t, msg, "remote:")
	assert.Equal(t, "deepr_export_20240309_140506.json", f.uploader.name)

	env, err := formats.DecodeEnvelope(f.uploader.data)
	require.NoError(t, err)
	assert.Len(t, env.Links, 1)

	_, err = f.service.Export(context.Background(), Request{Format: formats.FormatJSON, Destination: "remote:../weekly links"})
	require.NoError(t, err)
	assert.Equal(t, "weekly links.json", f.uploader.name)

	f.uploader.err = errors.New("quota exceeded")
	_, err = f.service.Export(context.Background(), Request{Format: formats.FormatJSON, Destination: "remote:"})
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestResolveDestination(t *testing.T) {
	_, err := ResolveDestination("  ", nil)
	assert.ErrorIs(t, err, ErrNoDestination)

	_, err = ResolveDestination("remote:", nil)
	assert.ErrorIs(t, err, ErrRemoteDestination)

	_, err = ResolveDestination("file:", nil)
	assert.ErrorIs(t, err, ErrNoDestination)

	dest, err := ResolveDestination("file:/tmp/x.csv", nil)
	require.NoError(t, err)
	assert.Equal(t, FileDestination{Path: "/tmp/x.csv"}, dest)

	dest, err = ResolveDestination("/tmp/exports", nil)
	require.NoError(t, err)
	assert.Equal(t, DirDestination{Dir: "/tmp/exports"}, dest)
}

func TestConfineDestination(t *testing.T) {
	root := t.TempDir()

	allowed := map[string]struct{ override, configured string }{
		"empty override":           {"", root},
		"remote override":          {"remote:weekly", ""},
		"configured destination":   {"file:/srv/out.csv", "file:/srv/out.csv"},
		"subdirectory of root":     {filepath.Join(root, "weekly"), root},
		"file inside root":         {"file:" + filepath.Join(root, "out.csv"), root},
		"root itself as directory": {root, root},
	}
	for name, tc := range allowed {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, ConfineDestination(tc.override, tc.configured))
		})
	}

	rejected := map[string]struct{ override, configured string }{
		"nothing configured":     {"/tmp/anywhere", ""},
		"file outside root":      {"file:/etc/passwd", root},
		"directory outside root": {filepath.Dir(root), root},
		"dot-dot escape":         {filepath.Join(root, "..", "other"), root},
		"root as a file":         {"file:" + root, root},
		"configured single file": {"file:/srv/other.csv", "file:/srv/out.csv"},
		"configured remote":      {"/tmp/anywhere", "remote:"},
	}
	for name, tc := range rejected {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ConfineDestination(tc.override, tc.configured), ErrDestinationNotAllowed)
		})
	}
}

func TestMarkdownSync(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		f := setup(t)
		_, err := NewMarkdownSync(f.db, f.settings).Sync(ctx)
		assert.ErrorIs(t, err, ErrMarkdownSyncDisabled)
	})

	t.Run("writes the table", func(t *testing.T) {
		f := setup(t)
		f.addLink(t, "https://a.example/x|y", time.Now())
		path := filepath.Join(t.TempDir(), "links.md")
		require.NoError(t, f.settings.SetMarkdownSyncPath(path))

		count, err := NewMarkdownSync(f.db, f.settings).Sync(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NoError(t, formats.ValidateMarkdown(data))
		assert.Contains(t, string(data), `https://a.example/x\|y`)
	})

	t.Run("refuses to overwrite foreign file", func(t *testing.T) {
		f := setup(t)
		path := filepath.Join(t.TempDir(), "notes.md")
		require.NoError(t, os.WriteFile(path, []byte("# My notes\n"), 0644))
		require.NoError(t, f.settings.SetMarkdownSyncPath(path))

		_, err := NewMarkdownSync(f.db, f.settings).Sync(ctx)
		assert.ErrorIs(t, err, ErrMarkdownTarget)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "# My notes\n", string(data))
	})
}
