package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/petshop/erp/internal/application/inventory"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/interfaces/http/dto"
)

// InventoryService is the slice of inventoryapp.InventoryService the handler uses
type InventoryService interface {
	AdjustStock(ctx context.Context, tenantID, userID uuid.UUID, req inventoryapp.AdjustStockRequest) (*inventoryapp.AdjustStockResponse, error)
	ListMovements(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) (*shared.Paginated[inventoryapp.MovementResponse], error)
}

// InventoryHandler handles manual stock adjustments and the movement ledger
type InventoryHandler struct {
	BaseHandler
	inventoryService InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

type listMovementsQuery struct {
	dto.ListRequest
	Type string `form:"type" binding:"omitempty,oneof=IN OUT ADJUSTMENT SALE SALE_RETURN"`
}

// Adjust handles POST /inventory/adjustments
func (h *InventoryHandler) Adjust(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req inventoryapp.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.inventoryService.AdjustStock(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListMovements handles GET /inventory/products/:id/movements
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	productID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var q listMovementsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	filter := q.Filter()
	if q.Type != "" {
		filter.Filters["type"] = q.Type
	}
	page, err := h.inventoryService.ListMovements(c.Request.Context(), tenantID, productID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}
