package models

import (
	"time"

	"github.com/petshop/erp/internal/domain/identity"
	"github.com/shopspring/decimal"
)

// TenantModel is the persistence model for tenants. It has no tenant_id column and
// is therefore shared across tenants.
type TenantModel struct {
	AggregateModel
	Name            string                `gorm:"type:varchar(200);not null"`
	Slug            string                `gorm:"type:varchar(63);not null;uniqueIndex"`
	Status          identity.TenantStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Document        string                `gorm:"type:varchar(20)"`
	WhatsAppPhoneID string                `gorm:"column:whatsapp_phone_id;type:varchar(64);index"`
	ShopLocation    CoordinatesModel      `gorm:"embedded;embeddedPrefix:shop_"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant
func (m *TenantModel) ToDomain() *identity.Tenant {
	return &identity.Tenant{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		Slug:              m.Slug,
		Status:            m.Status,
		Document:          m.Document,
		WhatsAppPhoneID:   m.WhatsAppPhoneID,
		ShopLocation:      m.ShopLocation.ToDomain(),
	}
}

// FromDomain populates the persistence model from a domain Tenant
func (m *TenantModel) FromDomain(t *identity.Tenant) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.Name = t.Name
	m.Slug = t.Slug
	m.Status = t.Status
	m.Document = t.Document
	m.WhatsAppPhoneID = t.WhatsAppPhoneID
	m.ShopLocation.FromDomain(t.ShopLocation)
}

// TenantModelFromDomain creates a new persistence model from a domain Tenant
func TenantModelFromDomain(t *identity.Tenant) *TenantModel {
	m := &TenantModel{}
	m.FromDomain(t)
	return m
}

// UserModel is the persistence model for staff users
type UserModel struct {
	TenantAggregateModel
	Name           string           `gorm:"type:varchar(200);not null"`
	Email          string           `gorm:"type:varchar(254);not null;index"`
	PasswordHash   string           `gorm:"type:varchar(255);not null"`
	Role           identity.Role    `gorm:"type:varchar(20);not null"`
	Active         bool             `gorm:"not null"`
	CommissionRate *decimal.Decimal `gorm:"type:decimal(5,4)"`
	LastLoginAt    *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Name:                m.Name,
		Email:               m.Email,
		PasswordHash:        m.PasswordHash,
		Role:                m.Role,
		Active:              m.Active,
		CommissionRate:      m.CommissionRate,
		LastLoginAt:         m.LastLoginAt,
	}
}

// FromDomain populates the persistence model from a domain User
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainTenantAggregateRoot(u.TenantAggregateRoot)
	m.Name = u.Name
	m.Email = u.Email
	m.PasswordHash = u.PasswordHash
	m.Role = u.Role
	m.Active = u.Active
	m.CommissionRate = u.CommissionRate
	m.LastLoginAt = u.LastLoginAt
}

// UserModelFromDomain creates a new persistence model from a domain User
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
