package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/deepr/internal/entities"
)

// AuditReader lists recorded pipeline outcomes.
type AuditReader interface {
	GetEvents(eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error)
}

type AuditController struct {
	auditService AuditReader
}

func NewAuditController(auditService AuditReader) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

var auditEventTypes = map[entities.AuditEventType]struct{}{
	entities.AuditEventImport:  {},
	entities.AuditEventExport:  {},
	entities.AuditEventBackup:  {},
	entities.AuditEventRestore: {},
	entities.AuditEventAuth:    {},
}

// GetAuditEvents returns paginated audit events, newest first
// GET /api/audit?type=&limit=&offset=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	eventType := entities.AuditEventType(c.Query("type"))
	if eventType != "" {
		if _, ok := auditEventTypes[eventType]; !ok {
			respondBadRequest(c, "unknown event type")
			return
		}
	}
	limit, offset := parsePaging(c, 25, 100)

	events, total, err := ac.auditService.GetEvents(eventType, limit, offset)
	if err != nil {
		respondInternalError(c, err, "load audit events")
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    events,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(events)) < total,
	})
}
