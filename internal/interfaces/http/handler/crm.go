package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	crmapp "github.com/petshop/erp/internal/application/crm"
	"github.com/petshop/erp/internal/domain/shared"
)

// CRMService is the slice of crmapp.CRMService the inbox handler uses
type CRMService interface {
	ListConversations(ctx context.Context, req crmapp.ListConversationsRequest) (*shared.Paginated[crmapp.ConversationResponse], error)
	ListMessages(ctx context.Context, tenantID, convID uuid.UUID, req crmapp.ListMessagesRequest) (*shared.Paginated[crmapp.MessageResponse], error)
	SendMessage(ctx context.Context, tenantID, userID, clientID uuid.UUID, req crmapp.SendMessageRequest) (*crmapp.MessageResponse, error)
	MarkRead(ctx context.Context, tenantID, convID uuid.UUID) (*crmapp.ConversationResponse, error)
}

// CRMHandler serves the WhatsApp inbox
type CRMHandler struct {
	BaseHandler
	crmService CRMService
}

// NewCRMHandler creates a new CRMHandler
func NewCRMHandler(crmService CRMService) *CRMHandler {
	return &CRMHandler{crmService: crmService}
}

// ListConversations handles GET /crm/conversations
func (h *CRMHandler) ListConversations(c *gin.Context) {
	var req crmapp.ListConversationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.crmService.ListConversations(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// ListMessages handles GET /crm/conversations/:id/messages
func (h *CRMHandler) ListMessages(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	convID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req crmapp.ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.crmService.ListMessages(c.Request.Context(), tenantID, convID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// MarkRead handles POST /crm/conversations/:id/read
func (h *CRMHandler) MarkRead(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	convID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	conv, err := h.crmService.MarkRead(c.Request.Context(), tenantID, convID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, conv)
}

// SendMessage handles POST /crm/clients/:id/messages
func (h *CRMHandler) SendMessage(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	clientID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req crmapp.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	msg, err := h.crmService.SendMessage(c.Request.Context(), tenantID, userID, clientID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, msg)
}
