package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ventari/internal/core/id"
	"ventari/internal/infrastructure/http/v1/dto"
	"ventari/internal/infrastructure/storage/postgres"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditReader serves the audit trail recorded for an entity.
type AuditReader interface {
	History(ctx context.Context, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

// AuditHandler handles audit trail endpoints.
type AuditHandler struct {
	*BaseHandler
	audit AuditReader
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, audit AuditReader) *AuditHandler {
	return &AuditHandler{
		BaseHandler: base,
		audit:       audit,
	}
}

// History handles GET /audit/:id
func (h *AuditHandler) History(c *gin.Context) {
	ctx := c.Request.Context()

	entityID, err := dto.ParseID(c.Param("id"), "id")
	if err != nil {
		h.Error(c, err)
		return
	}

	limit := h.ParseIntQuery(c, "limit", defaultAuditLimit)
	if limit <= 0 || limit > maxAuditLimit {
		limit = defaultAuditLimit
	}

	entries, err := h.audit.History(ctx, entityID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      dto.FromAuditEntries(entries),
		TotalCount: int64(len(entries)),
		Limit:      limit,
	})
}

// RegisterRoutes registers audit trail routes. admin guards all of them.
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.GET("/:id", admin, h.History)
}
