package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel extends BaseModel with version for optimistic locking
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// ToAggregateRoot rebuilds a persisted aggregate root
func (m *AggregateModel) ToAggregateRoot() shared.BaseAggregateRoot {
	a := shared.BaseAggregateRoot{
		BaseEntity: m.BaseModel.ToDomain(),
		Version:    m.Version,
	}
	a.MarkPersisted()
	return a
}

// TenantAggregateModel provides common persistence fields for tenant-owned aggregate roots
type TenantAggregateModel struct {
	AggregateModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// FromDomainTenantAggregateRoot populates TenantAggregateModel from domain TenantAggregateRoot
func (m *TenantAggregateModel) FromDomainTenantAggregateRoot(t shared.TenantAggregateRoot) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.TenantID = t.TenantID
}

// ToTenantAggregateRoot rebuilds a persisted tenant-owned aggregate root
func (m *TenantAggregateModel) ToTenantAggregateRoot() shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{
		BaseAggregateRoot: m.AggregateModel.ToAggregateRoot(),
		TenantID:          m.TenantID,
	}
}

// CoordinatesModel stores a point as two nullable columns
type CoordinatesModel struct {
	Lat *float64 `gorm:"type:double precision"`
	Lng *float64 `gorm:"type:double precision"`
}

// FromDomain stores c; the zero point is stored as NULL
func (m *CoordinatesModel) FromDomain(c valueobject.Coordinates) {
	if c.IsZero() {
		m.Lat, m.Lng = nil, nil
		return
	}
	lat, lng := c.Lat, c.Lng
	m.Lat, m.Lng = &lat, &lng
}

// ToDomain returns the stored point or the zero point
func (m CoordinatesModel) ToDomain() valueobject.Coordinates {
	if m.Lat == nil || m.Lng == nil {
		return valueobject.Coordinates{}
	}
	return valueobject.Coordinates{Lat: *m.Lat, Lng: *m.Lng}
}

func money(d decimal.Decimal) valueobject.Money {
	return valueobject.NewMoney(d)
}
