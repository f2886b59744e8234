package readmodel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"github.com/shopspring/decimal"
)

const (
	dailySalesSQL = `SELECT day, sales_count, cancelled_count, gross, discounts, net, cost
FROM rm_sales_daily
WHERE tenant_id = ? AND day >= ? AND day <= ?
ORDER BY day`

	topClientsSQL = `SELECT client_id, name, purchase_count, total_spent, last_purchase_at
FROM rm_client_summary
WHERE tenant_id = ? AND purchase_count > 0
ORDER BY total_spent DESC, client_id
LIMIT ?`

	topProductsSQL = `SELECT product_id, sku, quantity, revenue, cost
FROM rm_product_sales
WHERE tenant_id = ? AND quantity > 0
ORDER BY revenue DESC, product_id
LIMIT ?`

	sellerCommissionsSQL = `SELECT seller_id, month, sales_count, sales_total, commission_total
FROM rm_seller_commissions
WHERE tenant_id = ? AND month = ?
ORDER BY commission_total DESC, seller_id`

	lowStockSQL = `SELECT product_id, sku, name, on_hand, min_stock, updated_at
FROM rm_stock_levels
WHERE tenant_id = ? AND low_stock = ?
ORDER BY sku`
)

// DailySales is one row of rm_sales_daily
type DailySales struct {
	Day            string          `db:"day" json:"day"`
	SalesCount     int             `db:"sales_count" json:"sales_count"`
	CancelledCount int             `db:"cancelled_count" json:"cancelled_count"`
	Gross          decimal.Decimal `db:"gross" json:"gross"`
	Discounts      decimal.Decimal `db:"discounts" json:"discounts"`
	Net            decimal.Decimal `db:"net" json:"net"`
	Cost           decimal.Decimal `db:"cost" json:"cost"`
}

// ClientRanking is one row of rm_client_summary
type ClientRanking struct {
	ClientID       uuid.UUID       `db:"client_id" json:"client_id"`
	Name           string          `db:"name" json:"name"`
	PurchaseCount  int             `db:"purchase_count" json:"purchase_count"`
	TotalSpent     decimal.Decimal `db:"total_spent" json:"total_spent"`
	LastPurchaseAt *time.Time      `db:"last_purchase_at" json:"last_purchase_at,omitempty"`
}

// ProductRanking is one row of rm_product_sales
type ProductRanking struct {
	ProductID uuid.UUID       `db:"product_id" json:"product_id"`
	SKU       string          `db:"sku" json:"sku"`
	Quantity  decimal.Decimal `db:"quantity" json:"quantity"`
	Revenue   decimal.Decimal `db:"revenue" json:"revenue"`
	Cost      decimal.Decimal `db:"cost" json:"cost"`
}

// SellerCommission is one row of rm_seller_commissions
type SellerCommission struct {
	SellerID        uuid.UUID       `db:"seller_id" json:"seller_id"`
	Month           string          `db:"month" json:"month"`
	SalesCount      int             `db:"sales_count" json:"sales_count"`
	SalesTotal      decimal.Decimal `db:"sales_total" json:"sales_total"`
	CommissionTotal decimal.Decimal `db:"commission_total" json:"commission_total"`
}

// LowStockItem is one low row of rm_stock_levels
type LowStockItem struct {
	ProductID uuid.UUID       `db:"product_id" json:"product_id"`
	SKU       string          `db:"sku" json:"sku"`
	Name      string          `db:"name" json:"name"`
	OnHand    decimal.Decimal `db:"on_hand" json:"on_hand"`
	MinStock  decimal.Decimal `db:"min_stock" json:"min_stock"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// QueryService reads the projection tables of the context tenant through the
// guarded sqlx path
type QueryService struct {
	db *tenant.GuardedDB
}

// NewQueryService creates a QueryService
func NewQueryService(db *tenant.GuardedDB) *QueryService {
	return &QueryService{db: db}
}

func requireTenant(ctx context.Context) (uuid.UUID, error) {
	id, ok, err := tenant.FromContext(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, tenant.ErrTenantIDRequired
	}
	return id, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 10
	case limit > 100:
		return 100
	}
	return limit
}

// DailySales returns the days between from and to, inclusive
func (q *QueryService) DailySales(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	rows := []DailySales{}
	if err := q.db.Select(ctx, &rows, q.db.Rebind(dailySalesSQL), tenantID, DayKey(from), DayKey(to)); err != nil {
		return nil, fmt.Errorf("failed to read daily sales: %w", err)
	}
	return rows, nil
}

// TopClients returns the clients with the highest spend
func (q *QueryService) TopClients(ctx context.Context, limit int) ([]ClientRanking, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	rows := []ClientRanking{}
	if err := q.db.Select(ctx, &rows, q.db.Rebind(topClientsSQL), tenantID, clampLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to read top clients: %w", err)
	}
	return rows, nil
}

// TopProducts returns the products with the highest revenue
func (q *QueryService) TopProducts(ctx context.Context, limit int) ([]ProductRanking, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	rows := []ProductRanking{}
	if err := q.db.Select(ctx, &rows, q.db.Rebind(topProductsSQL), tenantID, clampLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to read top products: %w", err)
	}
	return rows, nil
}

// SellerCommissions returns commission totals per seller for a month (YYYY-MM)
func (q *QueryService) SellerCommissions(ctx context.Context, month string) ([]SellerCommission, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return nil, fmt.Errorf("invalid month %q: %w", month, err)
	}
	rows := []SellerCommission{}
	if err := q.db.Select(ctx, &rows, q.db.Rebind(sellerCommissionsSQL), tenantID, month); err != nil {
		return nil, fmt.Errorf("failed to read seller commissions: %w", err)
	}
	return rows, nil
}

// LowStock returns the products at or below their reorder threshold
func (q *QueryService) LowStock(ctx context.Context) ([]LowStockItem, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	rows := []LowStockItem{}
	if err := q.db.Select(ctx, &rows, q.db.Rebind(lowStockSQL), tenantID, true); err != nil {
		return nil, fmt.Errorf("failed to read low stock: %w", err)
	}
	return rows, nil
}
