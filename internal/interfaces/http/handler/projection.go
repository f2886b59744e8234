package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	projectionapp "github.com/petshop/erp/internal/application/projection"
	"github.com/petshop/erp/internal/infrastructure/readmodel"
)

// ProjectionService is the slice of projectionapp.ProjectionService the handler uses
type ProjectionService interface {
	Rebuild(ctx context.Context, tenantID uuid.UUID, req projectionapp.RebuildRequest) ([]projectionapp.RebuildResponse, error)
	Status(ctx context.Context) ([]readmodel.ProjectionStatus, error)
}

// ProjectionHandler exposes read-model maintenance to shop admins
type ProjectionHandler struct {
	BaseHandler
	projectionService ProjectionService
}

// NewProjectionHandler creates a new ProjectionHandler
func NewProjectionHandler(projectionService ProjectionService) *ProjectionHandler {
	return &ProjectionHandler{projectionService: projectionService}
}

// Rebuild handles POST /projections/rebuild
func (h *ProjectionHandler) Rebuild(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req projectionapp.RebuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	out, err := h.projectionService.Rebuild(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

// Status handles GET /projections/status
func (h *ProjectionHandler) Status(c *gin.Context) {
	out, err := h.projectionService.Status(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}
