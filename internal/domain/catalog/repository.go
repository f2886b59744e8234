package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
)

// ProductRepository persists products of the context tenant
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, int64, error)
	Save(ctx context.Context, product *Product) error
	// SaveWithLock saves only if the stored version still equals product.Version-1
	SaveWithLock(ctx context.Context, product *Product) error
}
