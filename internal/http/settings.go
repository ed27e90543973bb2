package http

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/deepr/internal/settingsstore"
)

// BackupScheduler is the periodic auto-backup as seen by the settings API.
type BackupScheduler interface {
	Reschedule() error
	RunNow()
	IsRunning() bool
	GetNextRunTime() *time.Time
}

// SettingsController handles export and auto-backup settings
type SettingsController struct {
	settingsStore *settingsstore.SettingsStore
	scheduler     BackupScheduler
}

// NewSettingsController creates a settings controller; sched may be nil.
func NewSettingsController(store *settingsstore.SettingsStore, sched BackupScheduler) *SettingsController {
	return &SettingsController{
		settingsStore: store,
		scheduler:     sched,
	}
}

// SchedulePreset is a predefined schedule option
type SchedulePreset struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

var schedulePresets = []SchedulePreset{
	{Label: "Every hour", Value: "0 * * * *", Description: settingsstore.GetCronDescription("0 * * * *")},
	{Label: "Every 6 hours", Value: "0 */6 * * *", Description: settingsstore.GetCronDescription("0 */6 * * *")},
	{Label: "Daily", Value: settingsstore.DefaultAutoBackupSchedule, Description: settingsstore.GetCronDescription(settingsstore.DefaultAutoBackupSchedule)},
	{Label: "Weekly on Sunday", Value: "0 0 * * 0", Description: settingsstore.GetCronDescription("0 0 * * 0")},
}

// AutoBackupSettingsResponse is the response for GET /api/settings/auto-backup
type AutoBackupSettingsResponse struct {
	Config      settingsstore.AutoBackupConfig `json:"config"`
	Status      settingsstore.AutoBackupStatus `json:"status"`
	Description string                         `json:"description"`
	NextRun     *time.Time                     `json:"next_run,omitempty"`
	IsRunning   bool                           `json:"is_running"`
	Presets     []SchedulePreset               `json:"presets"`
}

// GetExportSettings returns the effective export settings with their sources
// GET /api/settings/export
func (sc *SettingsController) GetExportSettings(c *gin.Context) {
	c.JSON(http.StatusOK, sc.settingsStore.GetExportConfigInfo())
}

// UpdateExportSettingsRequest is the request body for PUT /api/settings/export
type UpdateExportSettingsRequest struct {
	Enabled          *bool   `json:"enabled"`
	Destination      *string `json:"destination"`
	MarkdownSyncPath *string `json:"markdown_sync_path"`
}

// UpdateExportSettings saves export overrides
// PUT /api/settings/export
func (sc *SettingsController) UpdateExportSettings(c *gin.Context) {
	var req UpdateExportSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request: "+err.Error())
		return
	}

	if req.Destination != nil {
		dest, err := validateDestination(*req.Destination)
		if err != nil {
			respondBadRequest(c, "invalid destination: "+err.Error())
			return
		}
		if err := sc.settingsStore.SetExportDestination(dest); err != nil {
			respondInternalError(c, err, "save export destination")
			return
		}
	}
	if req.MarkdownSyncPath != nil {
		if err := sc.settingsStore.SetMarkdownSyncPath(strings.TrimSpace(*req.MarkdownSyncPath)); err != nil {
			respondInternalError(c, err, "save markdown sync path")
			return
		}
	}
	if req.Enabled != nil {
		if err := sc.settingsStore.SetExportEnabled(*req.Enabled); err != nil {
			respondInternalError(c, err, "save export enabled")
			return
		}
	}

	// The auto-backup directory follows the export destination.
	if req.Destination != nil {
		sc.reschedule()
	}
	c.JSON(http.StatusOK, sc.settingsStore.GetExportConfigInfo())
}

// GetAutoBackupSettings returns the auto-backup configuration and last outcome
// GET /api/settings/auto-backup
func (sc *SettingsController) GetAutoBackupSettings(c *gin.Context) {
	config := sc.settingsStore.GetAutoBackupConfig()
	response := AutoBackupSettingsResponse{
		Config:      config,
		Status:      sc.settingsStore.GetAutoBackupStatus(),
		Description: settingsstore.GetCronDescription(config.Schedule),
		Presets:     schedulePresets,
	}
	if sc.scheduler != nil {
		response.NextRun = sc.scheduler.GetNextRunTime()
		response.IsRunning = sc.scheduler.IsRunning()
	}
	c.JSON(http.StatusOK, response)
}

// UpdateAutoBackupRequest is the request body for PUT /api/settings/auto-backup
type UpdateAutoBackupRequest struct {
	Enabled  *bool  `json:"enabled"`
	Schedule string `json:"schedule"`
}

// UpdateAutoBackupSettings saves the schedule and toggles the backup
// PUT /api/settings/auto-backup
func (sc *SettingsController) UpdateAutoBackupSettings(c *gin.Context) {
	var req UpdateAutoBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request: "+err.Error())
		return
	}

	if req.Schedule != "" {
		if err := settingsstore.ValidateCronSchedule(req.Schedule); err != nil {
			respondBadRequest(c, "invalid cron schedule: "+err.Error())
			return
		}
		if err := sc.settingsStore.SetAutoBackupSchedule(req.Schedule); err != nil {
			respondInternalError(c, err, "save auto-backup schedule")
			return
		}
	}
	if req.Enabled != nil {
		if err := sc.settingsStore.SetAutoBackupEnabled(*req.Enabled); err != nil {
			respondInternalError(c, err, "save auto-backup enabled")
			return
		}
	}

	if sc.scheduler != nil {
		if err := sc.scheduler.Reschedule(); err != nil {
			respondInternalError(c, err, "reschedule auto-backup")
			return
		}
	}
	sc.GetAutoBackupSettings(c)
}

// RunAutoBackup triggers a backup outside the schedule
// POST /api/settings/auto-backup/run
func (sc *SettingsController) RunAutoBackup(c *gin.Context) {
	if sc.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "scheduler not available"})
		return
	}
	if sc.settingsStore.GetAutoBackupConfig().Directory == "" {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "export destination not configured", Code: "no_destination"})
		return
	}
	sc.scheduler.RunNow()
	respondAccepted(c, "backup started in background", nil)
}

// ResetSettings clears database overrides, reverting to env/defaults
// POST /api/settings/reset
func (sc *SettingsController) ResetSettings(c *gin.Context) {
	if err := sc.settingsStore.ClearOverrides(); err != nil {
		respondInternalError(c, err, "reset settings")
		return
	}
	sc.reschedule()
	c.JSON(http.StatusOK, gin.H{
		"export":      sc.settingsStore.GetExportConfigInfo(),
		"auto_backup": sc.settingsStore.GetAutoBackupConfig(),
	})
}

func (sc *SettingsController) reschedule() {
	if sc.scheduler == nil {
		return
	}
	if err := sc.scheduler.Reschedule(); err != nil {
		log.Printf("Settings: failed to reschedule auto-backup: %v", err)
	}
}

// validateDestination normalizes a destination identifier. Directory
// destinations must exist and be writable; "file:" and "remote:" targets
// are checked when written.
func validateDestination(raw string) (string, error) {
	dest := strings.TrimSpace(raw)
	if dest == "" {
		return "", nil
	}
	if strings.ContainsRune(dest, '\x00') {
		return "", fmt.Errorf("destination contains invalid characters")
	}
	if strings.HasPrefix(dest, "file:") || strings.HasPrefix(dest, "remote:") {
		return dest, nil
	}
	return validateExportDirectory(dest)
}

// validateExportDirectory validates and normalizes an export directory path
func validateExportDirectory(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path format: %w", err)
	}
	cleanPath := filepath.Clean(absPath)

	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory does not exist")
		}
		if os.IsPermission(err) {
			return "", fmt.Errorf("permission denied")
		}
		return "", fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path must be a directory, not a file")
	}

	f, err := os.CreateTemp(cleanPath, ".deepr_write_test_*")
	if err != nil {
		if os.IsPermission(err) {
			return "", fmt.Errorf("no write permission")
		}
		return "", fmt.Errorf("cannot write to directory: %w", err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)

	return cleanPath, nil
}
