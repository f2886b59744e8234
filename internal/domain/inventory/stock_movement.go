package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/catalog"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MovementType classifies a stock movement
type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementSale       MovementType = "SALE"
	MovementSaleReturn MovementType = "SALE_RETURN"
)

// StockMovement is an immutable ledger line of a product's stock
type StockMovement struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	ProductID    uuid.UUID
	Type         MovementType
	Quantity     decimal.Decimal // signed: positive adds stock
	BalanceAfter decimal.Decimal
	Reason       string
	SourceID     *uuid.UUID // sale or event that caused the movement
	CreatedBy    *uuid.UUID
	CreatedAt    time.Time
}

// MovementRequest describes a stock change to apply
type MovementRequest struct {
	Type      MovementType
	Quantity  decimal.Decimal // always positive except for ADJUSTMENT, which is the new on-hand count
	Reason    string
	SourceID  *uuid.UUID
	CreatedBy *uuid.UUID
}

// ApplyMovement changes the product's stock and records the resulting events on it.
// Outbound movements that would drive stock negative fail with ErrInsufficientStock,
// except SALE movements: the sale already happened at the counter, so stock may go negative
// and the low-stock alert surfaces the discrepancy.
func ApplyMovement(p *catalog.Product, req MovementRequest) (*StockMovement, error) {
	if !p.IsStocked() {
		return nil, shared.NewDomainError("NOT_STOCKED", "Services do not track stock")
	}

	var delta decimal.Decimal
	switch req.Type {
	case MovementIn, MovementSaleReturn:
		if !req.Quantity.IsPositive() {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
		}
		delta = req.Quantity
	case MovementOut, MovementSale:
		if !req.Quantity.IsPositive() {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
		}
		delta = req.Quantity.Neg()
		if req.Type == MovementOut && p.Stock.Add(delta).IsNegative() {
			return nil, shared.ErrInsufficientStock
		}
	case MovementAdjustment:
		if req.Quantity.IsNegative() {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Counted stock cannot be negative")
		}
		delta = req.Quantity.Sub(p.Stock)
	default:
		return nil, shared.NewDomainError("INVALID_MOVEMENT", "Unknown movement type: "+string(req.Type))
	}

	wasLow := p.IsLowStock()
	p.Stock = p.Stock.Add(delta)
	p.IncrementVersion()

	m := &StockMovement{
		ID:           uuid.New(),
		TenantID:     p.TenantID,
		ProductID:    p.ID,
		Type:         req.Type,
		Quantity:     delta,
		BalanceAfter: p.Stock,
		Reason:       req.Reason,
		SourceID:     req.SourceID,
		CreatedBy:    req.CreatedBy,
		CreatedAt:    time.Now(),
	}

	p.AddDomainEvent(&StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, catalog.AggregateTypeProduct, p.ID, p.TenantID),
		ProductID:       p.ID,
		SKU:             p.SKU,
		MovementType:    req.Type,
		Delta:           delta,
		OnHand:          p.Stock,
		MinStock:        p.MinStock,
		Reason:          req.Reason,
		ProductVersion:  p.Version,
	})
	if !wasLow && p.IsLowStock() {
		p.AddDomainEvent(&StockLowEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockLow, catalog.AggregateTypeProduct, p.ID, p.TenantID),
			ProductID:       p.ID,
			SKU:             p.SKU,
			Name:            p.Name,
			OnHand:          p.Stock,
			MinStock:        p.MinStock,
			ProductVersion:  p.Version,
		})
	}
	return m, nil
}
