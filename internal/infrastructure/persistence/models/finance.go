package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// TitleModel holds the settlement columns shared by payables and receivables
type TitleModel struct {
	Amount     decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	PaidAmount decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	DueDate    time.Time           `gorm:"not null;index"`
	Status     finance.TitleStatus `gorm:"type:varchar(20);not null;index"`
	PaidAt     *time.Time
}

func (m *TitleModel) fromDomain(t finance.Title) {
	m.Amount = t.Amount.Amount()
	m.PaidAmount = t.PaidAmount.Amount()
	m.DueDate = t.DueDate
	m.Status = t.Status
	m.PaidAt = t.PaidAt
}

func (m *TitleModel) toDomain() finance.Title {
	return finance.Title{
		Amount:     money(m.Amount),
		PaidAmount: money(m.PaidAmount),
		DueDate:    m.DueDate,
		Status:     m.Status,
		PaidAt:     m.PaidAt,
	}
}

// ReceivableModel is the persistence model for accounts receivable
type ReceivableModel struct {
	TenantAggregateModel
	TitleModel
	ClientID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	SaleID      *uuid.UUID `gorm:"type:uuid;index"`
	Description string     `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (ReceivableModel) TableName() string {
	return "receivables"
}

// ToDomain converts the persistence model to a domain Receivable
func (m *ReceivableModel) ToDomain() *finance.Receivable {
	return &finance.Receivable{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Title:               m.TitleModel.toDomain(),
		ClientID:            m.ClientID,
		SaleID:              m.SaleID,
		Description:         m.Description,
	}
}

// ReceivableModelFromDomain creates a new persistence model from a domain Receivable
func ReceivableModelFromDomain(r *finance.Receivable) *ReceivableModel {
	m := &ReceivableModel{
		ClientID:    r.ClientID,
		SaleID:      r.SaleID,
		Description: r.Description,
	}
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.TitleModel.fromDomain(r.Title)
	return m
}

// PayableModel is the persistence model for accounts payable
type PayableModel struct {
	TenantAggregateModel
	TitleModel
	Supplier    string                  `gorm:"type:varchar(200);not null"`
	Category    finance.ExpenseCategory `gorm:"type:varchar(20);not null;index"`
	Description string                  `gorm:"type:varchar(255)"`
	Document    string                  `gorm:"type:varchar(64)"`
}

// TableName returns the table name for GORM
func (PayableModel) TableName() string {
	return "payables"
}

// ToDomain converts the persistence model to a domain Payable
func (m *PayableModel) ToDomain() *finance.Payable {
	return &finance.Payable{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Title:               m.TitleModel.toDomain(),
		Supplier:            m.Supplier,
		Category:            m.Category,
		Description:         m.Description,
		Document:            m.Document,
	}
}

// PayableModelFromDomain creates a new persistence model from a domain Payable
func PayableModelFromDomain(p *finance.Payable) *PayableModel {
	m := &PayableModel{
		Supplier:    p.Supplier,
		Category:    p.Category,
		Description: p.Description,
		Document:    p.Document,
	}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.TitleModel.fromDomain(p.Title)
	return m
}

// PayablePaymentModel is one payment against a payable, with the category copied
// for the DRE expense lines
type PayablePaymentModel struct {
	ID        uuid.UUID               `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID               `gorm:"type:uuid;not null;index:idx_payable_payments_tenant_paid,priority:1"`
	PayableID uuid.UUID               `gorm:"type:uuid;not null;index"`
	Category  finance.ExpenseCategory `gorm:"type:varchar(20);not null"`
	Amount    decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	PaidAt    time.Time               `gorm:"not null;index:idx_payable_payments_tenant_paid,priority:2"`
}

// TableName returns the table name for GORM
func (PayablePaymentModel) TableName() string {
	return "payable_payments"
}

// PayablePaymentModels returns the rows for the payments p made since it was loaded
func PayablePaymentModels(p *finance.Payable) []PayablePaymentModel {
	rows := make([]PayablePaymentModel, len(p.Payments))
	for i, pay := range p.Payments {
		rows[i] = PayablePaymentModel{
			ID:        pay.ID,
			TenantID:  p.TenantID,
			PayableID: p.ID,
			Category:  p.Category,
			Amount:    pay.Amount.Amount(),
			PaidAt:    pay.PaidAt,
		}
	}
	return rows
}

// CommissionModel is the persistence model for seller commissions
type CommissionModel struct {
	TenantAggregateModel
	SellerID  uuid.UUID                `gorm:"type:uuid;not null;index:idx_commission_seller_accrued,priority:1"`
	SaleID    uuid.UUID                `gorm:"type:uuid;not null;index"`
	SaleTotal decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	Rate      decimal.Decimal          `gorm:"type:decimal(5,4);not null"`
	Amount    decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	Status    finance.CommissionStatus `gorm:"type:varchar(20);not null;index"`
	AccruedAt time.Time                `gorm:"not null;index:idx_commission_seller_accrued,priority:2"`
	PaidAt    *time.Time
}

// TableName returns the table name for GORM
func (CommissionModel) TableName() string {
	return "commissions"
}

// ToDomain converts the persistence model to a domain Commission
func (m *CommissionModel) ToDomain() *finance.Commission {
	return &finance.Commission{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		SellerID:            m.SellerID,
		SaleID:              m.SaleID,
		SaleTotal:           money(m.SaleTotal),
		Rate:                m.Rate,
		Amount:              money(m.Amount),
		Status:              m.Status,
		AccruedAt:           m.AccruedAt,
		PaidAt:              m.PaidAt,
	}
}

// CommissionModelFromDomain creates a new persistence model from a domain Commission
func CommissionModelFromDomain(c *finance.Commission) *CommissionModel {
	m := &CommissionModel{
		SellerID:  c.SellerID,
		SaleID:    c.SaleID,
		SaleTotal: c.SaleTotal.Amount(),
		Rate:      c.Rate,
		Amount:    c.Amount.Amount(),
		Status:    c.Status,
		AccruedAt: c.AccruedAt,
		PaidAt:    c.PaidAt,
	}
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	return m
}
