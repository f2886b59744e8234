package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/catalog"
	"github.com/petshop/erp/internal/domain/inventory"
	"github.com/petshop/erp/internal/domain/shared"
	"go.uber.org/zap"
)

// InventoryService books manual stock movements
type InventoryService struct {
	productRepo  catalog.ProductRepository
	movementRepo inventory.StockMovementRepository
	transactor   shared.Transactor
	logger       *zap.Logger
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	productRepo catalog.ProductRepository,
	movementRepo inventory.StockMovementRepository,
	transactor shared.Transactor,
	logger *zap.Logger,
) *InventoryService {
	return &InventoryService{
		productRepo:  productRepo,
		movementRepo: movementRepo,
		transactor:   transactor,
		logger:       logger,
	}
}

// AdjustStock applies an IN, OUT or ADJUSTMENT movement under a row lock.
// StockAdjusted, and StockLow when the threshold is crossed, are recorded with it.
func (s *InventoryService) AdjustStock(ctx context.Context, tenantID, userID uuid.UUID, req AdjustStockRequest) (*AdjustStockResponse, error) {
	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.BelongsTo(tenantID) {
		return nil, shared.ErrNotFound
	}

	movement, err := inventory.ApplyMovement(product, inventory.MovementRequest{
		Type:      inventory.MovementType(req.Type),
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		CreatedBy: &userID,
	})
	if err != nil {
		return nil, err
	}

	err = s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.SaveWithLock(txCtx, product); err != nil {
			return err
		}
		return s.movementRepo.Create(txCtx, nil, movement)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock adjusted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("product_id", product.ID.String()),
		zap.String("type", req.Type),
		zap.String("delta", movement.Quantity.String()),
		zap.String("on_hand", product.Stock.String()),
	)
	return &AdjustStockResponse{
		Movement: ToMovementResponse(movement),
		OnHand:   product.Stock,
		LowStock: product.IsLowStock(),
	}, nil
}

// ListMovements returns the stock ledger of a product
func (s *InventoryService) ListMovements(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) (*shared.Paginated[MovementResponse], error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.BelongsTo(tenantID) {
		return nil, shared.ErrNotFound
	}

	filter = filter.Normalize()
	movements, total, err := s.movementRepo.FindByProduct(ctx, productID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]MovementResponse, len(movements))
	for i := range movements {
		items[i] = ToMovementResponse(&movements[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}
