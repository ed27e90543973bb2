package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
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
	"github.com/mrlokans/deepr/internal/remotesync"
	"github.com/mrlokans/deepr/internal/settingsstore"
)

type fakeAdapter struct {
	remotesync.Noop
	available     bool
	authenticated bool
	stored        []byte
	uploadErr     error
}

func (f *fakeAdapter) Provider() string                     { return "fake" }
func (f *fakeAdapter) IsAvailable() bool                    { return f.available }
func (f *fakeAdapter) IsAuthenticated(context.Context) bool { return f.authenticated }

func (f *fakeAdapter) UploadBackup(_ context.Context, content io.Reader) (bool, error) {
	if f.uploadErr != nil {
		return false, f.uploadErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return false, err
	}
	f.stored = data
	return true, nil
}

func (f *fakeAdapter) DownloadBackup(context.Context) (io.ReadCloser, bool, error) {
	if f.stored == nil {
		return nil, false, nil
	}
	return io.NopCloser(bytes.NewReader(f.stored)), true, nil
}

func (f *fakeAdapter) BackupStatus(context.Context) (remotesync.BackupStatus, error) {
	if f.stored == nil {
		return remotesync.BackupStatus{}, nil
	}
	now := time.Now()
	return remotesync.BackupStatus{HasBackup: true, LastBackupAt: &now}, nil
}

type fixture struct {
	db       *database.Database
	adapter  *fakeAdapter
	settings *settingsstore.SettingsStore
	service  *Service
	cacheDir string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		db:       db,
		adapter:  &fakeAdapter{available: true, authenticated: true},
		settings: settingsstore.New(settings.NewRepository(db.DB)),
		cacheDir: filepath.Join(t.TempDir(), "cache"),
	}
	f.service = NewService(db, f.adapter, f.settings, nil, f.cacheDir)
	return f
}

func (f *fixture) addLink(t *testing.T, profileName, uri string, tagNames ...string) {
	t.Helper()
	profile, err := profiles.NewRepository(f.db.DB).GetOrCreate(profileName)
	require.NoError(t, err)
	link := entities.Link{Link: uri, Name: uri, ProfileID: profile.ID, OpenedCount: 3}
	repo := links.NewRepository(f.db.DB)
	require.NoError(t, repo.Create(&link))
	tagList, err := tags.NewRepository(f.db.DB).GetOrCreateTags(tagNames, nil)
	require.NoError(t, err)
	require.NoError(t, repo.AttachTags(&link, tagList))
}

func TestPreconditions(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	f.adapter.available = false
	_, err := f.service.Backup(ctx)
	assert.ErrorIs(t, err, ErrRemoteUnavailable)

	f.adapter.available = true
	f.adapter.authenticated = false
	_, err = f.service.Restore(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = f.service.Status(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	f.adapter.authenticated = true
	_, err = f.service.Restore(ctx)
	assert.ErrorIs(t, err, ErrNoRemoteBackup)
}

func TestBackup_UploadsEnvelopeAndCleansStaging(t *testing.T) {
	f := setup(t)
	f.addLink(t, entities.DefaultProfileName, "https://a.example", "x", "y")
	f.addLink(t, "Work", "https://b.example")

	msg, err := f.service.Backup(context.Background())
	require.NoError(t, err)
	assert.Contains(t, msg, "2 links")

	env, err := formats.DecodeEnvelope(f.adapter.stored)
	require.NoError(t, err)
	assert.Equal(t, formats.EnvelopeVersion, env.Version)
	assert.Len(t, env.Profiles, 2)
	require.Len(t, env.Links, 2)
	assert.ElementsMatch(t, []string{"x", "y"}, env.Links[0].Tags)
	assert.Equal(t, "Work", env.Links[1].ProfileName)

	entries, err := os.ReadDir(f.cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged file is removed after upload")
	assert.NotNil(t, f.settings.GetRemoteBackupLastAt())

	status, err := f.service.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.HasBackup)
}

func TestBackup_UploadFailure(t *testing.T) {
	f := setup(t)
	f.adapter.uploadErr = errors.New("network down")

	_, err := f.service.Backup(context.Background())
	assert.ErrorContains(t, err, "network down")
	assert.Nil(t, f.settings.GetRemoteBackupLastAt())
}

func TestRestore_ReplacesStore(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.addLink(t, entities.DefaultProfileName, "https://keep.example", "news")
	f.addLink(t, "Work", "https://work.example", "news", "jobs")
	_, err := f.service.Backup(ctx)
	require.NoError(t, err)

	f.addLink(t, entities.DefaultProfileName, "https://added-later.example", "later")

	result, err := f.service.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, RestoreResult{Profiles: 2, Links: 2, Tags: 2}, result)

	all, err := links.NewRepository(f.db.DB).ListAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "https://keep.example", all[0].Link)
	assert.Equal(t, 3, all[0].OpenedCount)
	assert.Equal(t, "Work", all[1].Profile.Name)
	assert.ElementsMatch(t, []string{"jobs", "news"}, all[1].TagNames())

	var tagCount int64
	f.db.DB.Model(&entities.Tag{}).Count(&tagCount)
	assert.Equal(t, int64(2), tagCount, "tags not in the backup are gone")
}

func TestRestoreEnvelope_DropsLinksWithUnknownProfile(t *testing.T) {
	f := setup(t)

	env := formats.NewEnvelope(
		[]formats.EnvelopeProfile{{Name: "Home"}},
		[]formats.Record{
			{Link: "https://home.example", ProfileName: "Home"},
			{Link: "https://orphan.example", ProfileName: "Vanished"},
		},
		time.Now(),
	)

	result, err := f.service.RestoreEnvelope(env)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Links)
	assert.Equal(t, 1, result.Dropped)

	all, err := links.NewRepository(f.db.DB).ListAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Home", all[0].Profile.Name)
}

func TestRestoreEnvelope_EmptyReseedsDefaultProfile(t *testing.T) {
	f := setup(t)
	f.addLink(t, entities.DefaultProfileName, "https://a.example")

	result, err := f.service.RestoreEnvelope(formats.NewEnvelope(nil, nil, time.Now()))
	require.NoError(t, err)
	assert.Zero(t, result.Links)

	list, err := profiles.NewRepository(f.db.DB).List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entities.DefaultProfileName, list[0].Name)
}
