package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CreateProductRequest registers a product or service
type CreateProductRequest struct {
	SKU          string           `json:"sku" binding:"required,sku"`
	Name         string           `json:"name" binding:"required,min=1,max=200"`
	Kind         string           `json:"kind" binding:"required,oneof=product service"`
	Category     string           `json:"category" binding:"max=100"`
	Price        decimal.Decimal  `json:"price" binding:"required"`
	Cost         decimal.Decimal  `json:"cost"`
	MinStock     *decimal.Decimal `json:"min_stock"`
	InitialStock *decimal.Decimal `json:"initial_stock"`
}

// UpdateProductRequest changes a product; nil fields are left untouched
type UpdateProductRequest struct {
	Name     *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Category *string          `json:"category" binding:"omitempty,max=100"`
	Price    *decimal.Decimal `json:"price"`
	Cost     *decimal.Decimal `json:"cost"`
	MinStock *decimal.Decimal `json:"min_stock"`
	Active   *bool            `json:"active"`
}

// ProductResponse is the API view of a product
type ProductResponse struct {
	ID        uuid.UUID       `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	Category  string          `json:"category,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
	Stock     decimal.Decimal `json:"stock"`
	MinStock  decimal.Decimal `json:"min_stock"`
	LowStock  bool            `json:"low_stock"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ToProductResponse converts a domain product
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:        p.ID,
		SKU:       p.SKU,
		Name:      p.Name,
		Kind:      string(p.Kind),
		Category:  p.Category,
		Price:     p.Price.Amount(),
		Cost:      p.Cost.Amount(),
		Stock:     p.Stock,
		MinStock:  p.MinStock,
		LowStock:  p.IsLowStock(),
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
