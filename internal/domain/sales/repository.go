package sales

import (
	"context"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
)

// SaleFilter narrows sale listings
type SaleFilter struct {
	shared.Filter
	SellerID *uuid.UUID
	ClientID *uuid.UUID
	Status   SaleStatus
}

// SaleRepository persists sales of the context tenant
type SaleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	FindAll(ctx context.Context, filter SaleFilter) ([]Sale, int64, error)
	// Save persists the sale, its items and its pending events atomically
	Save(ctx context.Context, sale *Sale) error
}
