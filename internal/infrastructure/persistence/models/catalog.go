package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/catalog"
	"github.com/petshop/erp/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for products and services
type ProductModel struct {
	TenantAggregateModel
	SKU       string              `gorm:"type:varchar(50);not null;index"`
	Name      string              `gorm:"type:varchar(200);not null"`
	Kind      catalog.ProductKind `gorm:"type:varchar(20);not null"`
	Category  string              `gorm:"type:varchar(100);index"`
	Price     decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	Cost      decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	Stock     decimal.Decimal     `gorm:"type:decimal(18,3);not null"`
	MinStock  decimal.Decimal     `gorm:"type:decimal(18,3);not null"`
	Active    bool                `gorm:"not null"`
	SearchKey string              `gorm:"type:varchar(255);index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		SKU:                 m.SKU,
		Name:                m.Name,
		Kind:                m.Kind,
		Category:            m.Category,
		Price:               money(m.Price),
		Cost:                money(m.Cost),
		Stock:               m.Stock,
		MinStock:            m.MinStock,
		Active:              m.Active,
		SearchKey:           m.SearchKey,
	}
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.SKU = p.SKU
	m.Name = p.Name
	m.Kind = p.Kind
	m.Category = p.Category
	m.Price = p.Price.Amount()
	m.Cost = p.Cost.Amount()
	m.Stock = p.Stock
	m.MinStock = p.MinStock
	m.Active = p.Active
	m.SearchKey = p.SearchKey
}

// ProductModelFromDomain creates a new persistence model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// StockMovementModel is the persistence model for the append-only stock ledger
type StockMovementModel struct {
	ID           uuid.UUID              `gorm:"type:uuid;primaryKey"`
	TenantID     uuid.UUID              `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID              `gorm:"type:uuid;not null;index:idx_stock_movement_product"`
	Type         inventory.MovementType `gorm:"type:varchar(20);not null"`
	Quantity     decimal.Decimal        `gorm:"type:decimal(18,3);not null"`
	BalanceAfter decimal.Decimal        `gorm:"type:decimal(18,3);not null"`
	Reason       string                 `gorm:"type:varchar(255)"`
	SourceID     *uuid.UUID             `gorm:"type:uuid;index:idx_stock_movement_source"`
	CreatedBy    *uuid.UUID             `gorm:"type:uuid"`
	CreatedAt    time.Time              `gorm:"not null;index:idx_stock_movement_product"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the persistence model to a domain StockMovement
func (m *StockMovementModel) ToDomain() *inventory.StockMovement {
	return &inventory.StockMovement{
		ID:           m.ID,
		TenantID:     m.TenantID,
		ProductID:    m.ProductID,
		Type:         m.Type,
		Quantity:     m.Quantity,
		BalanceAfter: m.BalanceAfter,
		Reason:       m.Reason,
		SourceID:     m.SourceID,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt,
	}
}

// StockMovementModelFromDomain creates a new persistence model from a domain StockMovement
func StockMovementModelFromDomain(s *inventory.StockMovement) *StockMovementModel {
	return &StockMovementModel{
		ID:           s.ID,
		TenantID:     s.TenantID,
		ProductID:    s.ProductID,
		Type:         s.Type,
		Quantity:     s.Quantity,
		BalanceAfter: s.BalanceAfter,
		Reason:       s.Reason,
		SourceID:     s.SourceID,
		CreatedBy:    s.CreatedBy,
		CreatedAt:    s.CreatedAt,
	}
}
