package readmodel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/finance"
	"github.com/petshop/erp/internal/domain/inventory"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ProjectionSellerCommissions = "seller_commissions"
	ProjectionStockLevels       = "stock_levels"
)

// MonthKey is the rm_seller_commissions key of a timestamp
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// SellerCommissionsProjection maintains rm_seller_commissions. A cancelled
// commission is taken out of the month it was accrued in.
type SellerCommissionsProjection struct{ eventSet }

// NewSellerCommissionsProjection creates the seller_commissions projection
func NewSellerCommissionsProjection() *SellerCommissionsProjection {
	return &SellerCommissionsProjection{eventSet{
		finance.EventTypeCommissionAccrued,
		finance.EventTypeCommissionCancelled,
	}}
}

func (p *SellerCommissionsProjection) Name() string { return ProjectionSellerCommissions }

func (p *SellerCommissionsProjection) Apply(_ context.Context, tx *gorm.DB, event shared.DomainEvent) error {
	var (
		sellerID          uuid.UUID
		saleTotal, amount decimal.Decimal
		accruedAt         time.Time
		sign              int
	)
	switch e := event.(type) {
	case *finance.CommissionAccruedEvent:
		sellerID, saleTotal, amount, accruedAt, sign = e.SellerID, e.SaleTotal, e.Amount, e.AccruedAt, 1
	case *finance.CommissionCancelledEvent:
		sellerID, saleTotal, amount, accruedAt, sign = e.SellerID, e.SaleTotal, e.Amount, e.AccruedAt, -1
	default:
		return fmt.Errorf("unexpected event %T", event)
	}

	month := MonthKey(accruedAt)
	s := decimal.NewFromInt(int64(sign))
	return upsertRow(tx, &models.SellerCommissionModel{},
		func(r *models.SellerCommissionModel) {
			r.TenantID = event.TenantID()
			r.SellerID = sellerID
			r.Month = month
		},
		func(r *models.SellerCommissionModel) {
			r.SalesCount += sign
			r.SalesTotal = r.SalesTotal.Add(saleTotal.Mul(s))
			r.CommissionTotal = r.CommissionTotal.Add(amount.Mul(s))
		},
		"seller_id = ? AND month = ?", sellerID, month)
}

func (p *SellerCommissionsProjection) Reset(_ context.Context, tx *gorm.DB, tenantID *uuid.UUID) error {
	return resetRows(tx, &models.SellerCommissionModel{}, tenantID)
}

// StockLevelsProjection maintains rm_stock_levels from stock movements. Each
// event carries a full snapshot, so a snapshot older than the row's product
// version is ignored and a late redelivery cannot roll the row back.
type StockLevelsProjection struct{ eventSet }

// NewStockLevelsProjection creates the stock_levels projection
func NewStockLevelsProjection() *StockLevelsProjection {
	return &StockLevelsProjection{eventSet{inventory.EventTypeStockAdjusted, inventory.EventTypeStockLow}}
}

func (p *StockLevelsProjection) Name() string { return ProjectionStockLevels }

func (p *StockLevelsProjection) Apply(_ context.Context, tx *gorm.DB, event shared.DomainEvent) error {
	var (
		productID        uuid.UUID
		sku, name        string
		onHand, minStock decimal.Decimal
		version          int
	)
	switch e := event.(type) {
	case *inventory.StockAdjustedEvent:
		productID, sku, onHand, minStock, version = e.ProductID, e.SKU, e.OnHand, e.MinStock, e.ProductVersion
	case *inventory.StockLowEvent:
		productID, sku, name, onHand, minStock, version = e.ProductID, e.SKU, e.Name, e.OnHand, e.MinStock, e.ProductVersion
	default:
		return fmt.Errorf("unexpected event %T", event)
	}

	return upsertRow(tx, &models.StockLevelModel{},
		func(r *models.StockLevelModel) {
			r.TenantID = event.TenantID()
			r.ProductID = productID
		},
		func(r *models.StockLevelModel) {
			if name != "" {
				r.Name = name
			}
			if version < r.ProductVersion {
				return
			}
			r.SKU = sku
			r.ProductVersion = version
			r.OnHand = onHand
			r.MinStock = minStock
			r.LowStock = minStock.IsPositive() && onHand.LessThanOrEqual(minStock)
			r.UpdatedAt = event.OccurredAt().UTC()
		},
		"product_id = ?", productID)
}

func (p *StockLevelsProjection) Reset(_ context.Context, tx *gorm.DB, tenantID *uuid.UUID) error {
	return resetRows(tx, &models.StockLevelModel{}, tenantID)
}

// DefaultProjections returns every projection in registration order
func DefaultProjections() []Projection {
	return []Projection{
		NewSalesDailyProjection(),
		NewClientSummaryProjection(),
		NewProductSalesProjection(),
		NewSellerCommissionsProjection(),
		NewStockLevelsProjection(),
	}
}
