package http

import (
	"github.com/mrlokans/deepr/internal/audit"
	"github.com/mrlokans/deepr/internal/auth"
	"github.com/mrlokans/deepr/internal/database"
	"github.com/mrlokans/deepr/internal/remotesync"
	"github.com/mrlokans/deepr/internal/settingsstore"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database      *database.Database
	SettingsStore *settingsstore.SettingsStore
	Importer      Importer
	Exporter      Exporter
	Auditor       *audit.Service

	// Optional: Markdown sync file
	MarkdownSync MarkdownSyncer

	// Remote sync; Sessions is required for the sign-in flow
	Remote   remotesync.Adapter
	Backup   BackupService
	Sessions *auth.SessionManager

	// Background work (optional). Leave nil, not typed-nil, when disabled.
	BackupQueue BackupQueue
	Notifier    ChangeNotifier
	Scheduler   BackupScheduler

	// Authentication: empty disables the token check
	APIToken      string
	SecureCookies bool

	// ReadOnly rejects every mutating /api request
	ReadOnly bool

	// Application info
	Version string
}
