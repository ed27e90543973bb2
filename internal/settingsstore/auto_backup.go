package settingsstore

import (
	"strconv"
	"time"

	"github.com/mrlokans/deepr/internal/entities"
)

const (
	envAutoBackupEnabled  = "AUTO_BACKUP_ENABLED"
	envAutoBackupSchedule = "AUTO_BACKUP_SCHEDULE"

	// DefaultAutoBackupSchedule runs the backup once a day.
	DefaultAutoBackupSchedule = "0 3 * * *"
)

// AutoBackupConfig is the effective configuration for periodic CSV backups.
// The backup is written into the export destination directory.
type AutoBackupConfig struct {
	Enabled   bool   `json:"enabled"`
	Directory string `json:"directory"`
	Schedule  string `json:"schedule"`
}

// AutoBackupStatus represents the outcome of the last automatic backup.
type AutoBackupStatus struct {
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	Status    string     `json:"status,omitempty"` // "success", "failed", ""
	Message   string     `json:"message,omitempty"`
}

func (s *SettingsStore) GetAutoBackupEnabled() bool {
	enabled, _ := s.lookupBool(entities.SettingKeyAutoBackupEnabled, envAutoBackupEnabled, false)
	return enabled
}

func (s *SettingsStore) SetAutoBackupEnabled(enabled bool) error {
	return s.db.SetSetting(entities.SettingKeyAutoBackupEnabled, strconv.FormatBool(enabled))
}

func (s *SettingsStore) GetAutoBackupSchedule() string {
	schedule, _ := s.lookup(entities.SettingKeyAutoBackupSchedule, envAutoBackupSchedule, DefaultAutoBackupSchedule)
	return schedule
}

// SetAutoBackupSchedule validates and stores a cron schedule.
func (s *SettingsStore) SetAutoBackupSchedule(schedule string) error {
	if err := ValidateCronSchedule(schedule); err != nil {
		return err
	}
	return s.db.SetSetting(entities.SettingKeyAutoBackupSchedule, schedule)
}

func (s *SettingsStore) GetAutoBackupConfig() AutoBackupConfig {
	return AutoBackupConfig{
		Enabled:   s.GetAutoBackupEnabled(),
		Directory: s.GetExportDestination(),
		Schedule:  s.GetAutoBackupSchedule(),
	}
}

func (s *SettingsStore) GetAutoBackupStatus() AutoBackupStatus {
	status := AutoBackupStatus{LastRunAt: s.timestamp(entities.SettingKeyAutoBackupLastAt)}
	if setting, err := s.db.GetSetting(entities.SettingKeyAutoBackupLastStatus); err == nil {
		status.Status = setting.Value
	}
	if setting, err := s.db.GetSetting(entities.SettingKeyAutoBackupLastMessage); err == nil {
		status.Message = setting.Value
	}
	return status
}

func (s *SettingsStore) SetAutoBackupStatus(status, message string) error {
	if err := s.stamp(entities.SettingKeyAutoBackupLastAt, time.Now()); err != nil {
		return err
	}
	if err := s.db.SetSetting(entities.SettingKeyAutoBackupLastStatus, status); err != nil {
		return err
	}
	return s.db.SetSetting(entities.SettingKeyAutoBackupLastMessage, message)
}
