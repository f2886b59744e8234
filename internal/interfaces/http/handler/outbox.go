package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	eventapp "github.com/petshop/erp/internal/application/event"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/interfaces/http/dto"
)

// OutboxService is the slice of eventapp.OutboxService the handler uses
type OutboxService interface {
	ListDead(ctx context.Context, page, pageSize int) (*shared.Paginated[eventapp.OutboxEntryResponse], error)
	Requeue(ctx context.Context, id uuid.UUID) (*eventapp.OutboxEntryResponse, error)
	RequeueAll(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*eventapp.OutboxStats, error)
}

// OutboxHandler lets shop admins inspect and retry undelivered events
type OutboxHandler struct {
	BaseHandler
	outboxService OutboxService
}

// NewOutboxHandler creates a new OutboxHandler
func NewOutboxHandler(outboxService OutboxService) *OutboxHandler {
	return &OutboxHandler{outboxService: outboxService}
}

// Stats handles GET /outbox/stats
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outboxService.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// ListDead handles GET /outbox/dead
func (h *OutboxHandler) ListDead(c *gin.Context) {
	var q dto.ListRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.outboxService.ListDead(c.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Requeue handles POST /outbox/dead/:id/retry
func (h *OutboxHandler) Requeue(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	entry, err := h.outboxService.Requeue(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RequeueAll handles POST /outbox/dead/retry
func (h *OutboxHandler) RequeueAll(c *gin.Context) {
	count, err := h.outboxService.RequeueAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"requeued": count})
}
