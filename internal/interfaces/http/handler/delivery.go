package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	deliveryapp "github.com/petshop/erp/internal/application/delivery"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/interfaces/http/middleware"
)

// DeliveryService is the slice of deliveryapp.DeliveryService the handler uses
type DeliveryService interface {
	Quote(ctx context.Context, tenantID uuid.UUID, req deliveryapp.QuoteRequest) (*deliveryapp.QuoteResponse, error)
	CreateRoute(ctx context.Context, tenantID uuid.UUID, req deliveryapp.CreateRouteRequest) (*deliveryapp.RouteResponse, error)
	CompleteStop(ctx context.Context, tenantID, routeID, stopID uuid.UUID, req deliveryapp.CompleteStopRequest) (*deliveryapp.RouteResponse, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*deliveryapp.RouteResponse, error)
	List(ctx context.Context, req deliveryapp.ListRoutesRequest) (*shared.Paginated[deliveryapp.RouteResponse], error)
}

// DeliveryHandler handles delivery quotes and driver routes
type DeliveryHandler struct {
	BaseHandler
	deliveryService DeliveryService
}

// NewDeliveryHandler creates a new DeliveryHandler
func NewDeliveryHandler(deliveryService DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliveryService: deliveryService}
}

// Quote handles POST /delivery/quote
func (h *DeliveryHandler) Quote(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req deliveryapp.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	quote, err := h.deliveryService.Quote(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// CreateRoute handles POST /delivery/routes
func (h *DeliveryHandler) CreateRoute(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req deliveryapp.CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	route, err := h.deliveryService.CreateRoute(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, route)
}

// CompleteStop handles POST /delivery/routes/:id/stops/:stop_id/complete
func (h *DeliveryHandler) CompleteStop(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	routeID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	stopID, ok := h.pathID(c, "stop_id")
	if !ok {
		return
	}
	var req deliveryapp.CompleteStopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	route, err := h.deliveryService.CompleteStop(c.Request.Context(), tenantID, routeID, stopID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, route)
}

// GetRoute handles GET /delivery/routes/:id
func (h *DeliveryHandler) GetRoute(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	route, err := h.deliveryService.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, route)
}

// ListRoutes handles GET /delivery/routes. Drivers only see their own runs.
func (h *DeliveryHandler) ListRoutes(c *gin.Context) {
	var req deliveryapp.ListRoutesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if claims := middleware.GetJWTClaims(c); claims != nil && claims.Role == string(identity.RoleDriver) {
		self, ok := h.userID(c)
		if !ok {
			return
		}
		req.DriverID = &self
	}
	page, err := h.deliveryService.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}
