package settingsstore

import (
	"strconv"
	"time"

	"github.com/mrlokans/deepr/internal/entities"
)

const (
	envExportEnabled     = "EXPORT_ENABLED"
	envExportDestination = "EXPORT_DESTINATION"
	envMarkdownSyncPath  = "MARKDOWN_SYNC_PATH"
)

// ExportConfigInfo is the effective export configuration with value sources.
type ExportConfigInfo struct {
	Enabled       bool   `json:"enabled"`
	EnabledSource string `json:"enabled_source"`

	Destination       string `json:"destination"`
	DestinationSource string `json:"destination_source"`

	MarkdownSyncPath       string `json:"markdown_sync_path"`
	MarkdownSyncPathSource string `json:"markdown_sync_path_source"`

	LastExportAt *time.Time `json:"last_export_at,omitempty"`
}

// GetExportEnabled reports whether exports are allowed (default: enabled).
func (s *SettingsStore) GetExportEnabled() bool {
	enabled, _ := s.lookupBool(entities.SettingKeyExportEnabled, envExportEnabled, true)
	return enabled
}

func (s *SettingsStore) SetExportEnabled(enabled bool) error {
	return s.db.SetSetting(entities.SettingKeyExportEnabled, strconv.FormatBool(enabled))
}

// GetExportDestination returns the logical destination identifier, "" when unset.
func (s *SettingsStore) GetExportDestination() string {
	dest, _ := s.lookup(entities.SettingKeyExportDestination, envExportDestination, "")
	return dest
}

func (s *SettingsStore) SetExportDestination(dest string) error {
	return s.db.SetSetting(entities.SettingKeyExportDestination, dest)
}

func (s *SettingsStore) GetExportLastAt() *time.Time {
	return s.timestamp(entities.SettingKeyExportLastAt)
}

func (s *SettingsStore) MarkExported(at time.Time) error {
	return s.stamp(entities.SettingKeyExportLastAt, at)
}

// GetMarkdownSyncPath returns the Markdown sync file path, "" when unset.
func (s *SettingsStore) GetMarkdownSyncPath() string {
	path, _ := s.lookup(entities.SettingKeyMarkdownSyncPath, envMarkdownSyncPath, "")
	return path
}

func (s *SettingsStore) SetMarkdownSyncPath(path string) error {
	return s.db.SetSetting(entities.SettingKeyMarkdownSyncPath, path)
}

func (s *SettingsStore) MarkMarkdownSynced(at time.Time) error {
	return s.stamp(entities.SettingKeyMarkdownSyncLastAt, at)
}

func (s *SettingsStore) GetRemoteBackupLastAt() *time.Time {
	return s.timestamp(entities.SettingKeyRemoteBackupLastAt)
}

func (s *SettingsStore) MarkRemoteBackup(at time.Time) error {
	return s.stamp(entities.SettingKeyRemoteBackupLastAt, at)
}

func (s *SettingsStore) GetExportConfigInfo() ExportConfigInfo {
	enabled, enabledSource := s.lookupBool(entities.SettingKeyExportEnabled, envExportEnabled, true)
	dest, destSource := s.lookup(entities.SettingKeyExportDestination, envExportDestination, "")
	mdPath, mdSource := s.lookup(entities.SettingKeyMarkdownSyncPath, envMarkdownSyncPath, "")
	return ExportConfigInfo{
		Enabled:                enabled,
		EnabledSource:          enabledSource,
		Destination:            dest,
		DestinationSource:      destSource,
		MarkdownSyncPath:       mdPath,
		MarkdownSyncPathSource: mdSource,
		LastExportAt:           s.GetExportLastAt(),
	}
}
