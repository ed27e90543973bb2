// Package backup moves the whole link store to and from the remote sync
// provider as a JSON envelope.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/deepr/internal/database"
	"github.com/mrlokans/deepr/internal/database/links"
	"github.com/mrlokans/deepr/internal/database/profiles"
	"github.com/mrlokans/deepr/internal/database/tags"
	"github.com/mrlokans/deepr/internal/entities"
	"github.com/mrlokans/deepr/internal/formats"
	"github.com/mrlokans/deepr/internal/metrics"
	"github.com/mrlokans/deepr/internal/remotesync"
	"github.com/mrlokans/deepr/internal/settingsstore"
)

var (
	ErrRemoteUnavailable = errors.New("remote backup is not available")
	ErrNotAuthenticated  = errors.New("sign in to the remote provider first")
	ErrNoRemoteBackup    = errors.New("no remote backup found")
	ErrRestore           = errors.New("failed to restore backup")
)

// Recorder receives backup and restore outcomes.
type Recorder interface {
	LogBackup(description string, err error)
	LogRestore(links, dropped int, err error)
}

type RestoreResult struct {
	Profiles int `json:"profiles"`
	Links    int `json:"links"`
	Tags     int `json:"tags"`
	// Dropped counts links whose profile is not part of the envelope.
	Dropped int `json:"dropped"`
}

type Service struct {
	db       *database.Database
	adapter  remotesync.Adapter
	settings *settingsstore.SettingsStore
	recorder Recorder
	cacheDir string
}

// NewService creates a backup service. Envelopes are staged in cacheDir
// before upload; recorder may be nil.
func NewService(db *database.Database, adapter remotesync.Adapter, settings *settingsstore.SettingsStore, recorder Recorder, cacheDir string) *Service {
	return &Service{
		db:       db,
		adapter:  adapter,
		settings: settings,
		recorder: recorder,
		cacheDir: cacheDir,
	}
}

func (s *Service) ready(ctx context.Context) error {
	if !s.adapter.IsAvailable() {
		return ErrRemoteUnavailable
	}
	if !s.adapter.IsAuthenticated(ctx) {
		return ErrNotAuthenticated
	}
	return nil
}

// Backup uploads the whole store and returns a success message.
func (s *Service) Backup(ctx context.Context) (string, error) {
	count, err := s.backup(ctx)
	metrics.BackupRuns.WithLabelValues("remote_backup", metrics.Status(err)).Inc()
	msg := fmt.Sprintf("Backed up %d links to %s", count, s.adapter.Provider())
	if s.recorder != nil {
		s.recorder.LogBackup(msg, err)
	}
	if err != nil {
		return "", err
	}
	log.Printf("Backup: %s", msg)
	return msg, nil
}

func (s *Service) backup(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}

	env, err := s.BuildEnvelope(time.Now())
	if err != nil {
		return 0, err
	}
	data, err := formats.EncodeEnvelope(env)
	if err != nil {
		return 0, err
	}

	staged, err := s.stage(data)
	if err != nil {
		return 0, err
	}
	defer os.Remove(staged)

	file, err := os.Open(staged)
	if err != nil {
		return 0, fmt.Errorf("failed to open staged backup: %w", err)
	}
	defer file.Close()

	uploaded, err := s.adapter.UploadBackup(ctx, file)
	if err != nil {
		return 0, err
	}
	if !uploaded {
		return 0, ErrRemoteUnavailable
	}

	if err := s.settings.MarkRemoteBackup(time.Now()); err != nil {
		log.Printf("Backup: failed to record backup time: %v", err)
	}
	return len(env.Links), nil
}

// BuildEnvelope snapshots profiles and links with tag and profile names.
func (s *Service) BuildEnvelope(at time.Time) (*formats.Envelope, error) {
	profileList, err := profiles.NewRepository(s.db.DB).List()
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	all, err := links.NewRepository(s.db.DB).ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load links: %w", err)
	}

	envProfiles := make([]formats.EnvelopeProfile, 0, len(profileList))
	for _, p := range profileList {
		envProfiles = append(envProfiles, formats.EnvelopeProfile{
			Name:      p.Name,
			CreatedAt: formats.FormatTime(p.CreatedAt),
		})
	}
	return formats.NewEnvelope(envProfiles, formats.RecordsFromLinks(all), at), nil
}

// stage writes data to a uniquely named file in the cache directory.
func (s *Service) stage(data []byte) (string, error) {
	dir := s.cacheDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s", uuid.NewString(), remotesync.BackupFileName))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to stage backup: %w", err)
	}
	return path, nil
}

// Restore replaces the whole store with the latest remote backup.
func (s *Service) Restore(ctx context.Context) (RestoreResult, error) {
	result, err := s.restore(ctx)
	metrics.BackupRuns.WithLabelValues("restore", metrics.Status(err)).Inc()
	if s.recorder != nil {
		s.recorder.LogRestore(result.Links, result.Dropped, err)
	}
	return result, err
}

func (s *Service) restore(ctx context.Context) (RestoreResult, error) {
	if err := s.ready(ctx); err != nil {
		return RestoreResult{}, err
	}

	body, found, err := s.adapter.DownloadBackup(ctx)
	if err != nil {
		return RestoreResult{}, err
	}
	if !found {
		return RestoreResult{}, ErrNoRemoteBackup
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return RestoreResult{}, fmt.Errorf("failed to read backup: %w", err)
	}

	env, err := formats.DecodeEnvelope(data)
	if err != nil {
		return RestoreResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return RestoreResult{}, err
	}
	return s.RestoreEnvelope(env)
}

// RestoreEnvelope replaces the store contents with env in one transaction.
func (s *Service) RestoreEnvelope(env *formats.Envelope) (RestoreResult, error) {
	var result RestoreResult
	err := s.db.WithTransaction(func(tx *gorm.DB) error {
		linkRepo := links.NewRepository(tx)
		tagRepo := tags.NewRepository(tx)
		profileRepo := profiles.NewRepository(tx)

		if err := linkRepo.DeleteAll(); err != nil {
			return err
		}
		if err := tagRepo.DeleteAll(); err != nil {
			return err
		}
		if err := profileRepo.DeleteAll(); err != nil {
			return err
		}

		byName := make(map[string]uint, len(env.Profiles))
		for _, p := range env.Profiles {
			if _, dup := byName[p.Name]; dup || p.Name == "" {
				continue
			}
			profile := entities.Profile{Name: p.Name}
			if created, err := formats.ParseTime(p.CreatedAt); err == nil {
				profile.CreatedAt = created
			}
			if err := profileRepo.Create(&profile); err != nil {
				return fmt.Errorf("failed to create profile %s: %w", p.Name, err)
			}
			byName[p.Name] = profile.ID
			result.Profiles++
		}

		tagCache := make(map[string]entities.Tag)
		for _, rec := range env.Records() {
			profileID, ok := byName[rec.ProfileName]
			if !ok {
				log.Printf("Restore: dropping %s, unknown profile %q", rec.Link, rec.ProfileName)
				result.Dropped++
				continue
			}

			link := restoredLink(rec, profileID)
			if err := linkRepo.Create(&link); err != nil {
				return fmt.Errorf("failed to restore link %s: %w", rec.Link, err)
			}
			tagList, err := tagRepo.GetOrCreateTags(rec.Tags, tagCache)
			if err != nil {
				return err
			}
			if err := linkRepo.AttachTags(&link, tagList); err != nil {
				return err
			}
			result.Links++
		}
		result.Tags = len(tagCache)
		return nil
	})
	if err != nil {
		return RestoreResult{}, fmt.Errorf("%w: %w", ErrRestore, err)
	}

	if result.Profiles == 0 {
		if err := s.db.SeedDefaultProfile(); err != nil {
			log.Printf("Restore: failed to seed default profile: %v", err)
		}
	}
	log.Printf("Restore: %d profiles, %d links, %d tags restored, %d links dropped",
		result.Profiles, result.Links, result.Tags, result.Dropped)
	return result, nil
}

func restoredLink(rec formats.Record, profileID uint) entities.Link {
	link := entities.Link{
		Link:        rec.Link,
		Name:        rec.Name,
		Notes:       rec.Notes,
		Thumbnail:   rec.Thumbnail,
		OpenedCount: rec.OpenedCount,
		IsFavourite: rec.IsFavourite,
		ProfileID:   profileID,
	}
	if created, err := formats.ParseTime(rec.CreatedAt); err == nil {
		link.CreatedAt = created
	}
	if opened, err := formats.ParseTime(rec.LastOpenedAt); err == nil {
		link.LastOpenedAt = &opened
	}
	return link
}

// Status reports whether a remote backup exists and when it was made.
func (s *Service) Status(ctx context.Context) (remotesync.BackupStatus, error) {
	if err := s.ready(ctx); err != nil {
		return remotesync.BackupStatus{}, err
	}
	return s.adapter.BackupStatus(ctx)
}
