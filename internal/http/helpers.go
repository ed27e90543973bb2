package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/deepr/internal/backup"
	"github.com/mrlokans/deepr/internal/exporters"
	"github.com/mrlokans/deepr/internal/formats"
	"github.com/mrlokans/deepr/internal/importers"
	"github.com/mrlokans/deepr/internal/remotesync"
	"github.com/mrlokans/deepr/internal/storage"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // machine-readable error code
}

type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type PaginatedResponse struct {
	Data    any   `json:"data"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// --- Error Response Helpers ---

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs err and hides it from the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// errorMapping pairs a sentinel with the status and code reported for it.
type errorMapping struct {
	target error
	status int
	code   string
}

var pipelineErrors = []errorMapping{
	{formats.ErrUnknownFormat, http.StatusBadRequest, "unknown_format"},
	{formats.ErrEncodeNotSupported, http.StatusBadRequest, "encode_not_supported"},
	{formats.ErrUnsupportedEnvelope, http.StatusUnprocessableEntity, "unsupported_backup"},
	{formats.ErrInvalidLink, http.StatusBadRequest, "invalid_link"},
	{formats.ErrInvalidMarkdown, http.StatusUnprocessableEntity, "invalid_markdown"},
	{importers.ErrReadSource, http.StatusBadRequest, "unreadable_source"},
	{importers.ErrDecode, http.StatusUnprocessableEntity, "decode_failed"},
	{importers.ErrUnknownProfile, http.StatusNotFound, "unknown_profile"},
	{exporters.ErrExportDisabled, http.StatusConflict, "export_disabled"},
	{exporters.ErrNoDestination, http.StatusConflict, "no_destination"},
	{exporters.ErrNoData, http.StatusConflict, "no_data"},
	{exporters.ErrRemoteDestination, http.StatusConflict, "remote_destination"},
	{exporters.ErrDestinationNotAllowed, http.StatusBadRequest, "destination_not_allowed"},
	{exporters.ErrMarkdownSyncDisabled, http.StatusConflict, "markdown_sync_disabled"},
	{exporters.ErrMarkdownTarget, http.StatusConflict, "markdown_target_invalid"},
	{backup.ErrRemoteUnavailable, http.StatusServiceUnavailable, "remote_unavailable"},
	{backup.ErrNotAuthenticated, http.StatusUnauthorized, "remote_not_authenticated"},
	{backup.ErrNoRemoteBackup, http.StatusNotFound, "no_remote_backup"},
	{remotesync.ErrUnavailable, http.StatusServiceUnavailable, "remote_unavailable"},
	{remotesync.ErrNotAuthenticated, http.StatusUnauthorized, "remote_not_authenticated"},
	{remotesync.ErrUnknownState, http.StatusBadRequest, "invalid_state"},
	{storage.ErrNotFound, http.StatusNotFound, "remote_not_found"},
	{gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
}

// respondPipelineError maps precondition sentinels to 4xx responses with
// distinct messages. Anything else is a 500.
func respondPipelineError(c *gin.Context, err error, context string) {
	for _, m := range pipelineErrors {
		if errors.Is(err, m.target) {
			c.JSON(m.status, ErrorResponse{Error: err.Error(), Code: m.code})
			return
		}
	}
	respondInternalError(c, err, context)
}

// --- Success Response Helpers ---

func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parseIDParam responds with 400 and returns false when the path parameter is not an ID.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseOptionalQueryID returns 0 when the parameter is absent.
func parseOptionalQueryID(c *gin.Context, paramName string) (uint, bool) {
	raw := c.Query(paramName)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parsePaging reads limit/offset, clamping limit to [1, maxLimit].
func parsePaging(c *gin.Context, defaultLimit, maxLimit int) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
