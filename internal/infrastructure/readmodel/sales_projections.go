package readmodel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/partner"
	"github.com/petshop/erp/internal/domain/sales"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ProjectionSalesDaily    = "sales_daily"
	ProjectionClientSummary = "client_summary"
	ProjectionProductSales  = "product_sales"
)

// DayKey is the rm_sales_daily key of a timestamp
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// saleFacts extracts the snapshot and direction of a sale event. Completion adds
// the sale to the aggregates and cancellation takes it back out.
func saleFacts(event shared.DomainEvent) (sales.SaleSnapshot, int, error) {
	switch e := event.(type) {
	case *sales.SaleCompletedEvent:
		return e.SaleSnapshot, 1, nil
	case *sales.SaleCancelledEvent:
		return e.SaleSnapshot, -1, nil
	default:
		return sales.SaleSnapshot{}, 0, fmt.Errorf("unexpected event %T", event)
	}
}

// SalesDailyProjection maintains rm_sales_daily. Cancelled sales leave the totals of
// the day they were completed and are counted in cancelled_count.
type SalesDailyProjection struct{ eventSet }

// NewSalesDailyProjection creates the sales_daily projection
func NewSalesDailyProjection() *SalesDailyProjection {
	return &SalesDailyProjection{eventSet{sales.EventTypeSaleCompleted, sales.EventTypeSaleCancelled}}
}

func (p *SalesDailyProjection) Name() string { return ProjectionSalesDaily }

func (p *SalesDailyProjection) Apply(_ context.Context, tx *gorm.DB, event shared.DomainEvent) error {
	sale, sign, err := saleFacts(event)
	if err != nil {
		return err
	}
	day := DayKey(sale.CompletedAt)
	s := decimal.NewFromInt(int64(sign))

	return upsertRow(tx, &models.SalesDailyModel{},
		func(r *models.SalesDailyModel) {
			r.TenantID = event.TenantID()
			r.Day = day
		},
		func(r *models.SalesDailyModel) {
			r.SalesCount += sign
			if sign < 0 {
				r.CancelledCount++
			}
			r.Gross = r.Gross.Add(sale.Subtotal.Mul(s))
			r.Discounts = r.Discounts.Add(sale.Discount.Mul(s))
			r.Net = r.Net.Add(sale.Total.Mul(s))
			r.Cost = r.Cost.Add(sale.CostTotal.Mul(s))
		},
		"day = ?", day)
}

func (p *SalesDailyProjection) Reset(_ context.Context, tx *gorm.DB, tenantID *uuid.UUID) error {
	return resetRows(tx, &models.SalesDailyModel{}, tenantID)
}

// ClientSummaryProjection maintains rm_client_summary. The client name is taken
// from the newest client version seen.
type ClientSummaryProjection struct{ eventSet }

// NewClientSummaryProjection creates the client_summary projection
func NewClientSummaryProjection() *ClientSummaryProjection {
	return &ClientSummaryProjection{eventSet{
		partner.EventTypeClientRegistered,
		partner.EventTypeClientUpdated,
		sales.EventTypeSaleCompleted,
		sales.EventTypeSaleCancelled,
	}}
}

func (p *ClientSummaryProjection) Name() string { return ProjectionClientSummary }

func (p *ClientSummaryProjection) Apply(_ context.Context, tx *gorm.DB, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *partner.ClientRegisteredEvent:
		// a new client is at version 1
		return p.applyName(tx, e.TenantID(), e.ClientID, e.Name, 1)
	case *partner.ClientUpdatedEvent:
		return p.applyName(tx, e.TenantID(), e.ClientID, e.Name, e.ClientVersion)
	}

	sale, sign, err := saleFacts(event)
	if err != nil {
		return err
	}
	if sale.ClientID == nil {
		return nil
	}
	clientID := *sale.ClientID
	return upsertRow(tx, &models.ClientSummaryModel{},
		func(r *models.ClientSummaryModel) {
			r.TenantID = event.TenantID()
			r.ClientID = clientID
		},
		func(r *models.ClientSummaryModel) {
			r.PurchaseCount += sign
			r.TotalSpent = r.TotalSpent.Add(sale.Total.Mul(decimal.NewFromInt(int64(sign))))
			if sign > 0 && (r.LastPurchaseAt == nil || sale.CompletedAt.After(*r.LastPurchaseAt)) {
				at := sale.CompletedAt.UTC()
				r.LastPurchaseAt = &at
			}
		},
		"client_id = ?", clientID)
}

func (p *ClientSummaryProjection) applyName(tx *gorm.DB, tenantID, clientID uuid.UUID, name string, version int) error {
	return upsertRow(tx, &models.ClientSummaryModel{},
		func(r *models.ClientSummaryModel) {
			r.TenantID = tenantID
			r.ClientID = clientID
		},
		func(r *models.ClientSummaryModel) {
			if version < r.ClientVersion {
				return
			}
			r.Name = name
			r.ClientVersion = version
		},
		"client_id = ?", clientID)
}

func (p *ClientSummaryProjection) Reset(_ context.Context, tx *gorm.DB, tenantID *uuid.UUID) error {
	return resetRows(tx, &models.ClientSummaryModel{}, tenantID)
}

// ProductSalesProjection maintains rm_product_sales
type ProductSalesProjection struct{ eventSet }

// NewProductSalesProjection creates the product_sales projection
func NewProductSalesProjection() *ProductSalesProjection {
	return &ProductSalesProjection{eventSet{sales.EventTypeSaleCompleted, sales.EventTypeSaleCancelled}}
}

func (p *ProductSalesProjection) Name() string { return ProjectionProductSales }

func (p *ProductSalesProjection) Apply(_ context.Context, tx *gorm.DB, event shared.DomainEvent) error {
	sale, sign, err := saleFacts(event)
	if err != nil {
		return err
	}
	s := decimal.NewFromInt(int64(sign))
	for _, line := range sale.Lines {
		line := line
		if err := upsertRow(tx, &models.ProductSalesModel{},
			func(r *models.ProductSalesModel) {
				r.TenantID = event.TenantID()
				r.ProductID = line.ProductID
			},
			func(r *models.ProductSalesModel) {
				r.SKU = line.SKU
				r.Quantity = r.Quantity.Add(line.Quantity.Mul(s))
				r.Revenue = r.Revenue.Add(line.Total.Mul(s))
				r.Cost = r.Cost.Add(line.Cost.Mul(s))
			},
			"product_id = ?", line.ProductID); err != nil {
			return err
		}
	}
	return nil
}

func (p *ProductSalesProjection) Reset(_ context.Context, tx *gorm.DB, tenantID *uuid.UUID) error {
	return resetRows(tx, &models.ProductSalesModel{}, tenantID)
}
