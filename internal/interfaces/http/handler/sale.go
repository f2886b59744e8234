package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	salesapp "github.com/petshop/erp/internal/application/sales"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/interfaces/http/middleware"
)

// SaleService is the slice of salesapp.SaleService the handler uses
type SaleService interface {
	Checkout(ctx context.Context, tenantID, sellerID uuid.UUID, req salesapp.CheckoutRequest) (*salesapp.SaleResponse, error)
	Cancel(ctx context.Context, tenantID, userID, id uuid.UUID, req salesapp.CancelSaleRequest) (*salesapp.SaleResponse, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*salesapp.SaleResponse, error)
	List(ctx context.Context, req salesapp.ListSalesRequest) (*shared.Paginated[salesapp.SaleResponse], error)
}

// SaleHandler handles the point of sale
type SaleHandler struct {
	BaseHandler
	saleService SaleService
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(saleService SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

// Checkout handles POST /sales; the authenticated user is the seller
func (h *SaleHandler) Checkout(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	sellerID, ok := h.userID(c)
	if !ok {
		return
	}
	var req salesapp.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	sale, err := h.saleService.Checkout(c.Request.Context(), tenantID, sellerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sale)
}

// Cancel handles POST /sales/:id/cancel
func (h *SaleHandler) Cancel(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req salesapp.CancelSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	sale, err := h.saleService.Cancel(c.Request.Context(), tenantID, userID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// Get handles GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	sale, err := h.saleService.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// List handles GET /sales. Sellers only see their own sales.
func (h *SaleHandler) List(c *gin.Context) {
	var req salesapp.ListSalesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if claims := middleware.GetJWTClaims(c); claims != nil && claims.Role == string(identity.RoleSeller) {
		self, ok := h.userID(c)
		if !ok {
			return
		}
		req.SellerID = &self
	}
	page, err := h.saleService.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}
