package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	financeapp "github.com/petshop/erp/internal/application/finance"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/interfaces/http/middleware"
)

// ReceivableService is the slice of financeapp.ReceivableService the handler uses
type ReceivableService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req financeapp.CreateReceivableRequest) (*financeapp.ReceivableResponse, error)
	Receive(ctx context.Context, tenantID, id uuid.UUID, req financeapp.SettleRequest) (*financeapp.ReceivableResponse, error)
	Cancel(ctx context.Context, tenantID, id uuid.UUID) (*financeapp.ReceivableResponse, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*financeapp.ReceivableResponse, error)
	List(ctx context.Context, req financeapp.ListTitlesRequest) (*shared.Paginated[financeapp.ReceivableResponse], error)
}

// PayableService is the slice of financeapp.PayableService the handler uses
type PayableService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req financeapp.CreatePayableRequest) (*financeapp.PayableResponse, error)
	Pay(ctx context.Context, tenantID, id uuid.UUID, req financeapp.SettleRequest) (*financeapp.PayableResponse, error)
	Cancel(ctx context.Context, tenantID, id uuid.UUID) (*financeapp.PayableResponse, error)
	List(ctx context.Context, req financeapp.ListTitlesRequest) (*shared.Paginated[financeapp.PayableResponse], error)
}

// CommissionService is the slice of financeapp.CommissionService the handler uses
type CommissionService interface {
	List(ctx context.Context, req financeapp.ListCommissionsRequest) (*shared.Paginated[financeapp.CommissionResponse], error)
	PayCommissions(ctx context.Context, tenantID uuid.UUID, req financeapp.PayCommissionsRequest) (*financeapp.PayoutResponse, error)
}

// FinanceHandler handles receivables, payables and seller commissions
type FinanceHandler struct {
	BaseHandler
	receivables ReceivableService
	payables    PayableService
	commissions CommissionService
}

// NewFinanceHandler creates a new FinanceHandler
func NewFinanceHandler(receivables ReceivableService, payables PayableService, commissions CommissionService) *FinanceHandler {
	return &FinanceHandler{
		receivables: receivables,
		payables:    payables,
		commissions: commissions,
	}
}

// CreateReceivable handles POST /finance/receivables
func (h *FinanceHandler) CreateReceivable(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req financeapp.CreateReceivableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	title, err := h.receivables.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, title)
}

// GetReceivable handles GET /finance/receivables/:id
func (h *FinanceHandler) GetReceivable(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	title, err := h.receivables.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, title)
}

// ListReceivables handles GET /finance/receivables
func (h *FinanceHandler) ListReceivables(c *gin.Context) {
	var req financeapp.ListTitlesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.receivables.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Receive handles POST /finance/receivables/:id/receive
func (h *FinanceHandler) Receive(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req financeapp.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	title, err := h.receivables.Receive(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, title)
}

// CancelReceivable handles POST /finance/receivables/:id/cancel
func (h *FinanceHandler) CancelReceivable(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	title, err := h.receivables.Cancel(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, title)
}

// CreatePayable handles POST /finance/payables
func (h *FinanceHandler) CreatePayable(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req financeapp.CreatePayableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	title, err := h.payables.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, title)
}

// ListPayables handles GET /finance/payables
func (h *FinanceHandler) ListPayables(c *gin.Context) {
	var req financeapp.ListTitlesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.payables.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Pay handles POST /finance/payables/:id/pay
func (h *FinanceHandler) Pay(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req financeapp.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	title, err := h.payables.Pay(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, title)
}

// CancelPayable handles POST /finance/payables/:id/cancel
func (h *FinanceHandler) CancelPayable(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	title, err := h.payables.Cancel(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, title)
}

// ListCommissions handles GET /finance/commissions. Sellers only see their own.
func (h *FinanceHandler) ListCommissions(c *gin.Context) {
	var req financeapp.ListCommissionsRequest
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
	page, err := h.commissions.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// PayCommissions handles POST /finance/commissions/pay
func (h *FinanceHandler) PayCommissions(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req financeapp.PayCommissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	payout, err := h.commissions.PayCommissions(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payout)
}
