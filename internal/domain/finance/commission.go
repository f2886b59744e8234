package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const AggregateTypeCommission = "Commission"

// CommissionStatus is the lifecycle of a seller commission
type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusPaid      CommissionStatus = "paid"
	CommissionStatusCancelled CommissionStatus = "cancelled"
)

// Commission is what a seller earns on one sale
type Commission struct {
	shared.TenantAggregateRoot
	SellerID  uuid.UUID
	SaleID    uuid.UUID
	SaleTotal valueobject.Money
	Rate      decimal.Decimal
	Amount    valueobject.Money
	Status    CommissionStatus
	AccruedAt time.Time // sale completion time; defines the commission period
	PaidAt    *time.Time
}

// NewCommission accrues rate·sale total for the seller, rounded to cents
func NewCommission(tenantID, sellerID, saleID uuid.UUID, saleTotal valueobject.Money, rate decimal.Decimal, accruedAt time.Time) (*Commission, error) {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_COMMISSION_RATE", "Commission rate must be between 0 and 1")
	}
	c := &Commission{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SellerID:            sellerID,
		SaleID:              saleID,
		SaleTotal:           saleTotal,
		Rate:                rate,
		Amount:              saleTotal.Mul(rate).Round(),
		Status:              CommissionStatusPending,
		AccruedAt:           accruedAt,
	}
	c.AddDomainEvent(&CommissionAccruedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCommissionAccrued, AggregateTypeCommission, c.ID, tenantID),
		SellerID:        sellerID,
		SaleID:          saleID,
		SaleTotal:       saleTotal.Amount(),
		Amount:          c.Amount.Amount(),
		AccruedAt:       accruedAt,
	})
	return c, nil
}

// Cancel reverses a pending commission when its sale is cancelled
func (c *Commission) Cancel() error {
	if c.Status != CommissionStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending commissions can be cancelled")
	}
	c.Status = CommissionStatusCancelled
	c.IncrementVersion()
	c.AddDomainEvent(&CommissionCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCommissionCancelled, AggregateTypeCommission, c.ID, c.TenantID),
		SellerID:        c.SellerID,
		SaleID:          c.SaleID,
		SaleTotal:       c.SaleTotal.Amount(),
		Amount:          c.Amount.Amount(),
		AccruedAt:       c.AccruedAt,
	})
	return nil
}

// MarkPaid settles the commission in a payout
func (c *Commission) MarkPaid(at time.Time) error {
	if c.Status != CommissionStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending commissions can be paid")
	}
	c.Status = CommissionStatusPaid
	c.PaidAt = &at
	c.IncrementVersion()
	return nil
}
