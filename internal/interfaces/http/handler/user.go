package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/petshop/erp/internal/application/identity"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/interfaces/http/dto"
)

// UserService is the slice of identityapp.UserService the handler uses
type UserService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req identityapp.CreateUserRequest) (*identityapp.UserResponse, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*identityapp.UserResponse, error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[identityapp.UserResponse], error)
	SetCommissionRate(ctx context.Context, tenantID, id uuid.UUID, req identityapp.SetCommissionRateRequest) (*identityapp.UserResponse, error)
	Deactivate(ctx context.Context, tenantID, id uuid.UUID) error
}

// UserHandler manages the staff of the current tenant
type UserHandler struct {
	BaseHandler
	userService UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type listUsersQuery struct {
	dto.ListRequest
	Role   string `form:"role" binding:"omitempty,oneof=admin manager seller driver"`
	Active *bool  `form:"active"`
}

// Create handles POST /users
func (h *UserHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req identityapp.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	user, err := h.userService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, user)
}

// Get handles GET /users/:id
func (h *UserHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// List handles GET /users
func (h *UserHandler) List(c *gin.Context) {
	var q listUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	filter := q.Filter()
	if q.Role != "" {
		filter.Filters["role"] = q.Role
	}
	if q.Active != nil {
		filter.Filters["active"] = *q.Active
	}
	page, err := h.userService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// SetCommissionRate handles PUT /users/:id/commission-rate
func (h *UserHandler) SetCommissionRate(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req identityapp.SetCommissionRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	user, err := h.userService.SetCommissionRate(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Deactivate handles POST /users/:id/deactivate
func (h *UserHandler) Deactivate(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Deactivate(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
