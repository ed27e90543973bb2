package settingsstore

import (
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/deepr/internal/entities"
)

// Backend is the key/value persistence the store reads overrides from.
type Backend interface {
	GetSetting(key string) (*entities.Setting, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// Source names reported alongside effective values.
const (
	SourceDatabase    = "database"
	SourceEnvironment = "environment"
	SourceDefault     = "default"
)

// Priority: database > environment > default
type SettingsStore struct {
	db Backend
}

func New(db Backend) *SettingsStore {
	return &SettingsStore{db: db}
}

// lookup resolves a value and reports where it came from.
func (s *SettingsStore) lookup(key, envVar, def string) (string, string) {
	if setting, err := s.db.GetSetting(key); err == nil && setting.Value != "" {
		return setting.Value, SourceDatabase
	}
	if envVar != "" {
		if v := os.Getenv(envVar); v != "" {
			return v, SourceEnvironment
		}
	}
	return def, SourceDefault
}

func (s *SettingsStore) lookupBool(key, envVar string, def bool) (bool, string) {
	raw, source := s.lookup(key, envVar, strconv.FormatBool(def))
	return raw == "true" || raw == "1", source
}

func (s *SettingsStore) timestamp(key string) *time.Time {
	setting, err := s.db.GetSetting(key)
	if err != nil || setting.Value == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, setting.Value)
	if err != nil {
		return nil
	}
	return &ts
}

func (s *SettingsStore) stamp(key string, at time.Time) error {
	return s.db.SetSetting(key, at.UTC().Format(time.RFC3339))
}

// ClearOverrides removes database overrides so env/default values apply again.
func (s *SettingsStore) ClearOverrides() error {
	keys := []string{
		entities.SettingKeyExportEnabled,
		entities.SettingKeyExportDestination,
		entities.SettingKeyAutoBackupEnabled,
		entities.SettingKeyAutoBackupSchedule,
		entities.SettingKeyMarkdownSyncPath,
	}
	for _, key := range keys {
		if err := s.db.DeleteSetting(key); err != nil {
			return err
		}
	}
	return nil
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule validates a five-field cron schedule string.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// GetNextRunTime calculates when the schedule next fires after now.
func GetNextRunTime(schedule string) (*time.Time, error) {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(time.Now())
	return &next, nil
}

// GetCronDescription returns a human-readable description of common schedules.
func GetCronDescription(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "0 */6 * * *":
		return "Every 6 hours"
	case "0 3 * * *":
		return "Daily at 03:00"
	case "0 0 * * *":
		return "Daily at midnight"
	case "0 0 * * 0":
		return "Weekly on Sunday at midnight"
	default:
		return "Custom schedule: " + schedule
	}
}
