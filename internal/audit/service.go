package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/mrlokans/deepr/internal/database/audit"
	"github.com/mrlokans/deepr/internal/entities"
)

// Service records pipeline outcomes for later display.
type Service struct {
	repo *audit.Repository
}

func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	go func() {
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// LogImport records the outcome of one import run.
func (s *Service) LogImport(profileID uint, format string, imported, skipped, duplicates int, err error) {
	event := newEvent(profileID, entities.AuditEventImport, format+"_import", err)
	event.Description = "Imported links"
	event.Metadata = encodeMetadata(map[string]any{
		"imported":   imported,
		"skipped":    skipped,
		"duplicates": duplicates,
	})
	s.LogAsync(event)
}

// LogExport records an export run; destination is the resolved target.
func (s *Service) LogExport(format, destination string, auto bool, err error) {
	action := format + "_export"
	if auto {
		action = "auto_backup"
	}
	event := newEvent(0, entities.AuditEventExport, action, err)
	event.Description = "Export to " + destination
	s.LogAsync(event)
}

func (s *Service) LogBackup(description string, err error) {
	event := newEvent(0, entities.AuditEventBackup, "remote_backup", err)
	event.Description = description
	s.LogAsync(event)
}

// LogRestore records a restore; dropped counts links whose profile was unknown.
func (s *Service) LogRestore(links, dropped int, err error) {
	event := newEvent(0, entities.AuditEventRestore, "remote_restore", err)
	event.Description = "Restore from remote backup"
	event.Metadata = encodeMetadata(map[string]any{
		"links":   links,
		"dropped": dropped,
	})
	s.LogAsync(event)
}

// LogAuth records remote provider sign-in and sign-out.
func (s *Service) LogAuth(provider, action string, err error) {
	event := newEvent(0, entities.AuditEventAuth, action, err)
	event.Description = provider
	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events, optionally filtered by type.
func (s *Service) GetEvents(eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(eventType, limit, offset)
}

// DeleteOldEvents removes events older than the retention window.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	return s.repo.DeleteOldEvents(time.Now().Add(-retention))
}

func newEvent(profileID uint, eventType entities.AuditEventType, action string, err error) *entities.AuditEvent {
	event := &entities.AuditEvent{
		ProfileID: profileID,
		EventType: eventType,
		Action:    action,
		Status:    entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	return event
}

func encodeMetadata(metadata map[string]any) string {
	b, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(b)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
