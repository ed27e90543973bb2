package entrypoint

// Compile-time checks that the services built by NewApp and Run satisfy the
// interfaces their consumers declare.

import (
	"github.com/mrlokans/deepr/internal/audit"
	"github.com/mrlokans/deepr/internal/auth"
	"github.com/mrlokans/deepr/internal/backup"
	"github.com/mrlokans/deepr/internal/database/profiles"
	"github.com/mrlokans/deepr/internal/database/settings"
	"github.com/mrlokans/deepr/internal/database/tags"
	"github.com/mrlokans/deepr/internal/exporters"
	http_controllers "github.com/mrlokans/deepr/internal/http"
	"github.com/mrlokans/deepr/internal/importers"
	"github.com/mrlokans/deepr/internal/remotesync"
	"github.com/mrlokans/deepr/internal/scheduler"
	"github.com/mrlokans/deepr/internal/settingsstore"
	"github.com/mrlokans/deepr/internal/tasks"
)

// Data access
var (
	_ http_controllers.TagStore     = (*tags.Repository)(nil)
	_ http_controllers.ProfileStore = (*profiles.Repository)(nil)
	_ settingsstore.Backend         = (*settings.Repository)(nil)
	_ tasks.OrphanTagsCleaner       = (*tags.Repository)(nil)
)

// Pipelines
var (
	_ http_controllers.Importer       = (*importers.Pipeline)(nil)
	_ http_controllers.Exporter       = (*exporters.Service)(nil)
	_ http_controllers.MarkdownSyncer = (*exporters.MarkdownSync)(nil)
	_ http_controllers.BackupService  = (*backup.Service)(nil)
	_ scheduler.Exporter              = (*exporters.Service)(nil)
	_ tasks.MarkdownSyncer            = (*exporters.MarkdownSync)(nil)
	_ tasks.RemoteBackuper            = (*backup.Service)(nil)
	_ tasks.AutoBackupRunner          = (*scheduler.AutoBackupScheduler)(nil)
)

// Remote sync
var (
	_ remotesync.Adapter             = (*remotesync.Cloud)(nil)
	_ remotesync.Adapter             = remotesync.Noop{}
	_ exporters.Uploader             = remotesync.Adapter(nil)
	_ http_controllers.OAuthSessions = (*auth.SessionManager)(nil)
)

// Audit trail
var (
	_ importers.Recorder            = (*audit.Service)(nil)
	_ exporters.Recorder            = (*audit.Service)(nil)
	_ backup.Recorder               = (*audit.Service)(nil)
	_ http_controllers.AuthRecorder = (*audit.Service)(nil)
	_ http_controllers.AuditReader  = (*audit.Service)(nil)
	_ tasks.AuditEventCleaner       = (*audit.Service)(nil)
)

// Background work
var (
	_ http_controllers.BackupQueue     = (*tasks.Jobs)(nil)
	_ http_controllers.ChangeNotifier  = (*tasks.Jobs)(nil)
	_ http_controllers.BackupScheduler = (*scheduler.AutoBackupScheduler)(nil)
	_ tasks.Enqueuer                   = (*tasks.Client)(nil)
)
