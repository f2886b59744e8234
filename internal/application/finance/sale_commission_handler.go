package finance

import (
	"context"
	"errors"
	"fmt"

	"github.com/petshop/erp/internal/domain/finance"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/sales"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleCommissionHandler accrues the seller's commission on completed sales and
// reverses it on cancelled ones
type SaleCommissionHandler struct {
	commissionRepo finance.CommissionRepository
	userRepo       identity.UserRepository
	defaultRate    decimal.Decimal
	logger         *zap.Logger
}

// NewSaleCommissionHandler creates a new SaleCommissionHandler
func NewSaleCommissionHandler(
	commissionRepo finance.CommissionRepository,
	userRepo identity.UserRepository,
	defaultRate decimal.Decimal,
	logger *zap.Logger,
) *SaleCommissionHandler {
	return &SaleCommissionHandler{
		commissionRepo: commissionRepo,
		userRepo:       userRepo,
		defaultRate:    defaultRate,
		logger:         logger,
	}
}

// Name returns the handler name
func (h *SaleCommissionHandler) Name() string {
	return "finance.sale_commission"
}

// EventTypes returns the event types this handler processes
func (h *SaleCommissionHandler) EventTypes() []string {
	return []string{sales.EventTypeSaleCompleted, sales.EventTypeSaleCancelled}
}

// Handle processes sale events
func (h *SaleCommissionHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *sales.SaleCompletedEvent:
		return h.accrue(ctx, e)
	case *sales.SaleCancelledEvent:
		return h.reverse(ctx, e)
	default:
		h.logger.Warn("unexpected event type", zap.String("event_type", event.EventType()))
		return nil
	}
}

func (h *SaleCommissionHandler) accrue(ctx context.Context, e *sales.SaleCompletedEvent) error {
	exists, err := h.commissionRepo.ExistsBySale(ctx, e.SaleID)
	if err != nil {
		return fmt.Errorf("check commission of sale %s: %w", e.SaleID, err)
	}
	if exists {
		h.logger.Debug("commission already accrued", zap.String("sale_id", e.SaleID.String()))
		return nil
	}

	rate := h.defaultRate
	seller, err := h.userRepo.FindByID(ctx, e.SellerID)
	switch {
	case err == nil:
		rate = seller.EffectiveCommissionRate(h.defaultRate)
	case errors.Is(err, shared.ErrNotFound):
		h.logger.Warn("seller not found, using default commission rate",
			zap.String("seller_id", e.SellerID.String()))
	default:
		return err
	}
	if !rate.IsPositive() {
		return nil
	}

	c, err := finance.NewCommission(e.TenantID(), e.SellerID, e.SaleID, valueobject.NewMoney(e.Total), rate, e.CompletedAt)
	if err != nil {
		return err
	}
	if err := h.commissionRepo.Save(ctx, c); err != nil {
		return fmt.Errorf("save commission of sale %s: %w", e.SaleID, err)
	}

	h.logger.Info("commission accrued",
		zap.String("tenant_id", e.TenantID().String()),
		zap.String("sale_id", e.SaleID.String()),
		zap.String("seller_id", e.SellerID.String()),
		zap.String("rate", rate.String()),
		zap.String("amount", c.Amount.String()),
	)
	return nil
}

func (h *SaleCommissionHandler) reverse(ctx context.Context, e *sales.SaleCancelledEvent) error {
	c, err := h.commissionRepo.FindBySale(ctx, e.SaleID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	switch c.Status {
	case finance.CommissionStatusCancelled:
		return nil
	case finance.CommissionStatusPaid:
		h.logger.Warn("cancelled sale has a paid commission",
			zap.String("sale_id", e.SaleID.String()),
			zap.String("commission_id", c.ID.String()),
			zap.String("amount", c.Amount.String()),
		)
		return nil
	}

	if err := c.Cancel(); err != nil {
		return err
	}
	return h.commissionRepo.Save(ctx, c)
}
