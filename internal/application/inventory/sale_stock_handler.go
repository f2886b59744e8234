package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/catalog"
	"github.com/petshop/erp/internal/domain/inventory"
	"github.com/petshop/erp/internal/domain/sales"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxStockAttempts = 3

// SaleStockHandler takes stock out for completed sales and puts it back for
// cancelled ones. Each product movement is keyed by (sale, product, type), so a
// redelivered event books nothing twice.
type SaleStockHandler struct {
	productRepo  catalog.ProductRepository
	movementRepo inventory.StockMovementRepository
	transactor   shared.Transactor
	logger       *zap.Logger
}

// NewSaleStockHandler creates a new SaleStockHandler
func NewSaleStockHandler(
	productRepo catalog.ProductRepository,
	movementRepo inventory.StockMovementRepository,
	transactor shared.Transactor,
	logger *zap.Logger,
) *SaleStockHandler {
	return &SaleStockHandler{
		productRepo:  productRepo,
		movementRepo: movementRepo,
		transactor:   transactor,
		logger:       logger,
	}
}

// Name returns the handler name
func (h *SaleStockHandler) Name() string {
	return "inventory.sale_stock"
}

// EventTypes returns the event types this handler processes
func (h *SaleStockHandler) EventTypes() []string {
	return []string{sales.EventTypeSaleCompleted, sales.EventTypeSaleCancelled}
}

// Handle books the stock movements of a sale event
func (h *SaleStockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *sales.SaleCompletedEvent:
		return h.book(ctx, e.SaleSnapshot, inventory.MovementSale, "sale "+e.Number)
	case *sales.SaleCancelledEvent:
		return h.book(ctx, e.SaleSnapshot, inventory.MovementSaleReturn, "cancelled sale "+e.Number)
	default:
		h.logger.Warn("unexpected event type", zap.String("event_type", event.EventType()))
		return nil
	}
}

func (h *SaleStockHandler) book(ctx context.Context, sale sales.SaleSnapshot, movementType inventory.MovementType, reason string) error {
	for _, line := range quantitiesByProduct(sale.Lines) {
		if err := h.bookLine(ctx, sale.SaleID, line.productID, line.quantity, movementType, reason); err != nil {
			return fmt.Errorf("product %s: %w", line.productID, err)
		}
	}
	return nil
}

func (h *SaleStockHandler) bookLine(ctx context.Context, saleID, productID uuid.UUID, qty decimal.Decimal, movementType inventory.MovementType, reason string) error {
	done, err := h.movementRepo.ExistsBySource(ctx, saleID, productID, movementType)
	if err != nil {
		return err
	}
	if done {
		h.logger.Debug("stock movement already booked",
			zap.String("sale_id", saleID.String()),
			zap.String("product_id", productID.String()),
		)
		return nil
	}

	for attempt := 1; ; attempt++ {
		product, err := h.productRepo.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				h.logger.Warn("sold product no longer exists", zap.String("product_id", productID.String()))
				return nil
			}
			return err
		}
		if !product.IsStocked() {
			return nil
		}

		movement, err := inventory.ApplyMovement(product, inventory.MovementRequest{
			Type:     movementType,
			Quantity: qty,
			Reason:   reason,
			SourceID: &saleID,
		})
		if err != nil {
			return err
		}

		err = h.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
			if err := h.productRepo.SaveWithLock(txCtx, product); err != nil {
				return err
			}
			return h.movementRepo.Create(txCtx, nil, movement)
		})
		if errors.Is(err, shared.ErrConcurrencyConflict) && attempt < maxStockAttempts {
			continue
		}
		if err != nil {
			return err
		}

		if product.Stock.IsNegative() {
			h.logger.Warn("stock went negative after sale",
				zap.String("product_id", productID.String()),
				zap.String("on_hand", product.Stock.String()),
			)
		}
		return nil
	}
}

type productQuantity struct {
	productID uuid.UUID
	quantity  decimal.Decimal
}

// quantitiesByProduct sums the lines per product, keeping first-seen order
func quantitiesByProduct(lines []sales.SaleLine) []productQuantity {
	index := make(map[uuid.UUID]int, len(lines))
	var out []productQuantity
	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			out[i].quantity = out[i].quantity.Add(l.Quantity)
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, productQuantity{productID: l.ProductID, quantity: l.Quantity})
	}
	return out
}
