package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	SettingKeyExportEnabled     = "export_enabled"
	SettingKeyExportDestination = "export_destination"
	SettingKeyExportLastAt      = "export_last_at"

	SettingKeyAutoBackupEnabled     = "auto_backup_enabled"
	SettingKeyAutoBackupSchedule    = "auto_backup_schedule"
	SettingKeyAutoBackupLastAt      = "auto_backup_last_at"
	SettingKeyAutoBackupLastStatus  = "auto_backup_last_status"
	SettingKeyAutoBackupLastMessage = "auto_backup_last_message"

	SettingKeyMarkdownSyncPath   = "markdown_sync_path"
	SettingKeyMarkdownSyncLastAt = "markdown_sync_last_at"

	SettingKeyRemoteBackupLastAt = "remote_backup_last_at"
)
