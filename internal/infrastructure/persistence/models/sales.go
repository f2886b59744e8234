package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// SaleModel is the persistence model for point-of-sale transactions
type SaleModel struct {
	TenantAggregateModel
	Number        string              `gorm:"type:varchar(32);not null;index"`
	ClientID      *uuid.UUID          `gorm:"type:uuid;index"`
	SellerID      uuid.UUID           `gorm:"type:uuid;not null;index"`
	PaymentMethod sales.PaymentMethod `gorm:"type:varchar(20);not null"`
	Subtotal      decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	Discount      decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	Total         decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	CostTotal     decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	Status        sales.SaleStatus    `gorm:"type:varchar(20);not null;index"`
	Notes         string              `gorm:"type:text"`
	CompletedAt   time.Time           `gorm:"not null;index"`
	CancelledAt   *time.Time
	CancelReason  string          `gorm:"type:varchar(255)"`
	Items         []SaleItemModel `gorm:"foreignKey:SaleID"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// ToDomain converts the persistence model to a domain Sale
func (m *SaleModel) ToDomain() *sales.Sale {
	s := &sales.Sale{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Number:              m.Number,
		ClientID:            m.ClientID,
		SellerID:            m.SellerID,
		PaymentMethod:       m.PaymentMethod,
		Subtotal:            money(m.Subtotal),
		Discount:            money(m.Discount),
		Total:               money(m.Total),
		CostTotal:           money(m.CostTotal),
		Status:              m.Status,
		Notes:               m.Notes,
		CompletedAt:         m.CompletedAt,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
		Items:               make([]sales.SaleItem, len(m.Items)),
	}
	for i := range m.Items {
		s.Items[i] = m.Items[i].ToDomain()
	}
	return s
}

// FromDomain populates the persistence model from a domain Sale, including its items
func (m *SaleModel) FromDomain(s *sales.Sale) {
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	m.Number = s.Number
	m.ClientID = s.ClientID
	m.SellerID = s.SellerID
	m.PaymentMethod = s.PaymentMethod
	m.Subtotal = s.Subtotal.Amount()
	m.Discount = s.Discount.Amount()
	m.Total = s.Total.Amount()
	m.CostTotal = s.CostTotal.Amount()
	m.Status = s.Status
	m.Notes = s.Notes
	m.CompletedAt = s.CompletedAt
	m.CancelledAt = s.CancelledAt
	m.CancelReason = s.CancelReason
	m.Items = make([]SaleItemModel, len(s.Items))
	for i, it := range s.Items {
		m.Items[i] = SaleItemModel{
			ID:        it.ID,
			TenantID:  s.TenantID,
			SaleID:    s.ID,
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.Amount(),
			UnitCost:  it.UnitCost.Amount(),
			Discount:  it.Discount.Amount(),
			Total:     it.Total.Amount(),
		}
	}
}

// SaleModelFromDomain creates a new persistence model from a domain Sale
func SaleModelFromDomain(s *sales.Sale) *SaleModel {
	m := &SaleModel{}
	m.FromDomain(s)
	return m
}

// SaleItemModel is the persistence model for sale lines
type SaleItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKU       string          `gorm:"type:varchar(50);not null"`
	Name      string          `gorm:"type:varchar(200);not null"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	UnitCost  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Discount  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Total     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (SaleItemModel) TableName() string {
	return "sale_items"
}

// ToDomain converts the persistence model to a domain SaleItem
func (m *SaleItemModel) ToDomain() sales.SaleItem {
	return sales.SaleItem{
		ID:        m.ID,
		ProductID: m.ProductID,
		SKU:       m.SKU,
		Name:      m.Name,
		Quantity:  m.Quantity,
		UnitPrice: money(m.UnitPrice),
		UnitCost:  money(m.UnitCost),
		Discount:  money(m.Discount),
		Total:     money(m.Total),
	}
}
