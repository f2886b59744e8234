package finance

import (
	"context"
	"errors"
	"fmt"

	"github.com/petshop/erp/internal/domain/finance"
	"github.com/petshop/erp/internal/domain/sales"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// SaleReceivableHandler opens a receivable for sales charged on account and
// cancels it again when the sale is voided
type SaleReceivableHandler struct {
	receivableRepo finance.ReceivableRepository
	dueDays        int
	logger         *zap.Logger
}

// NewSaleReceivableHandler creates a new SaleReceivableHandler
func NewSaleReceivableHandler(receivableRepo finance.ReceivableRepository, dueDays int, logger *zap.Logger) *SaleReceivableHandler {
	return &SaleReceivableHandler{
		receivableRepo: receivableRepo,
		dueDays:        dueDays,
		logger:         logger,
	}
}

// Name returns the handler name
func (h *SaleReceivableHandler) Name() string {
	return "finance.sale_receivable"
}

// EventTypes returns the event types this handler processes
func (h *SaleReceivableHandler) EventTypes() []string {
	return []string{sales.EventTypeSaleCompleted, sales.EventTypeSaleCancelled}
}

// Handle processes sale events
func (h *SaleReceivableHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *sales.SaleCompletedEvent:
		return h.open(ctx, e)
	case *sales.SaleCancelledEvent:
		return h.cancel(ctx, e)
	default:
		h.logger.Warn("unexpected event type", zap.String("event_type", event.EventType()))
		return nil
	}
}

func (h *SaleReceivableHandler) open(ctx context.Context, e *sales.SaleCompletedEvent) error {
	if e.PaymentMethod != sales.PaymentAccount || e.ClientID == nil {
		return nil
	}

	exists, err := h.receivableRepo.ExistsBySale(ctx, e.SaleID)
	if err != nil {
		return fmt.Errorf("check receivable of sale %s: %w", e.SaleID, err)
	}
	if exists {
		h.logger.Debug("receivable already exists for sale", zap.String("sale_id", e.SaleID.String()))
		return nil
	}

	saleID := e.SaleID
	due := e.CompletedAt.AddDate(0, 0, h.dueDays)
	r, err := finance.NewReceivable(e.TenantID(), *e.ClientID, &saleID,
		valueobject.NewMoney(e.Total), due, "Sale "+e.Number)
	if err != nil {
		return err
	}
	if err := h.receivableRepo.Save(ctx, r); err != nil {
		return fmt.Errorf("save receivable of sale %s: %w", e.SaleID, err)
	}

	h.logger.Info("receivable opened for account sale",
		zap.String("tenant_id", e.TenantID().String()),
		zap.String("sale_id", e.SaleID.String()),
		zap.String("receivable_id", r.ID.String()),
		zap.String("amount", r.Amount.String()),
		zap.Time("due_date", due),
	)
	return nil
}

func (h *SaleReceivableHandler) cancel(ctx context.Context, e *sales.SaleCancelledEvent) error {
	if e.PaymentMethod != sales.PaymentAccount {
		return nil
	}

	r, err := h.receivableRepo.FindBySale(ctx, e.SaleID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	switch r.Status {
	case finance.TitleStatusCancelled:
		return nil
	case finance.TitleStatusOpen:
		if err := r.Cancel(); err != nil {
			return err
		}
		return h.receivableRepo.Save(ctx, r)
	default:
		// money was already received; a refund is a manual decision
		h.logger.Warn("cancelled sale has a settled receivable",
			zap.String("sale_id", e.SaleID.String()),
			zap.String("receivable_id", r.ID.String()),
			zap.String("status", string(r.Status)),
			zap.String("paid_amount", r.PaidAmount.String()),
		)
		return nil
	}
}
