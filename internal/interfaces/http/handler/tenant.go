package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/petshop/erp/internal/application/identity"
)

// TenantService is the slice of identityapp.TenantService the handler uses
type TenantService interface {
	Create(ctx context.Context, req identityapp.CreateTenantRequest) (*identityapp.CreateTenantResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*identityapp.TenantResponse, error)
	List(ctx context.Context) ([]identityapp.TenantResponse, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, req identityapp.UpdateTenantSettingsRequest) (*identityapp.TenantResponse, error)
	Suspend(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) error
}

// TenantStatusCache is told when a tenant's status changes
type TenantStatusCache interface {
	Forget(id uuid.UUID)
}

// TenantHandler serves the operator bootstrap routes and the current tenant's settings
type TenantHandler struct {
	BaseHandler
	tenantService TenantService
	statusCache   TenantStatusCache
}

// NewTenantHandler creates a new TenantHandler; statusCache may be nil
func NewTenantHandler(tenantService TenantService, statusCache TenantStatusCache) *TenantHandler {
	return &TenantHandler{tenantService: tenantService, statusCache: statusCache}
}

// Create handles POST /tenants
func (h *TenantHandler) Create(c *gin.Context) {
	var req identityapp.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.tenantService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List handles GET /tenants
func (h *TenantHandler) List(c *gin.Context) {
	tenants, err := h.tenantService.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenants)
}

// Get handles GET /tenants/:id
func (h *TenantHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.tenantService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, t)
}

// Suspend handles POST /tenants/:id/suspend
func (h *TenantHandler) Suspend(c *gin.Context) {
	h.changeStatus(c, h.tenantService.Suspend)
}

// Activate handles POST /tenants/:id/activate
func (h *TenantHandler) Activate(c *gin.Context) {
	h.changeStatus(c, h.tenantService.Activate)
}

func (h *TenantHandler) changeStatus(c *gin.Context, change func(context.Context, uuid.UUID) error) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := change(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	if h.statusCache != nil {
		h.statusCache.Forget(id)
	}
	h.NoContent(c)
}

// Current handles GET /tenant
func (h *TenantHandler) Current(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	t, err := h.tenantService.GetByID(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, t)
}

// UpdateSettings handles PUT /tenant/settings
func (h *TenantHandler) UpdateSettings(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req identityapp.UpdateTenantSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	t, err := h.tenantService.UpdateSettings(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, t)
}
