package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
)

// StockMovementRepository persists stock movements of the context tenant
type StockMovementRepository interface {
	// Create persists movements inside the caller's transaction
	Create(ctx context.Context, tx any, movements ...*StockMovement) error
	FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]StockMovement, int64, error)
	// ExistsBySource reports whether a movement was already recorded for the source and product
	ExistsBySource(ctx context.Context, sourceID, productID uuid.UUID, movementType MovementType) (bool, error)
}
