package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/delivery"
	"github.com/shopspring/decimal"
)

// RouteModel is the persistence model for delivery routes
type RouteModel struct {
	TenantAggregateModel
	DriverID   uuid.UUID            `gorm:"type:uuid;not null;index"`
	Date       time.Time            `gorm:"type:date;not null;index"`
	Origin     CoordinatesModel     `gorm:"embedded;embeddedPrefix:origin_"`
	DistanceKm decimal.Decimal      `gorm:"type:decimal(10,2);not null"`
	Fee        decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Status     delivery.RouteStatus `gorm:"type:varchar(20);not null;index"`
	Stops      []RouteStopModel     `gorm:"foreignKey:RouteID"`
}

// TableName returns the table name for GORM
func (RouteModel) TableName() string {
	return "delivery_routes"
}

// ToDomain converts the persistence model to a domain Route
func (m *RouteModel) ToDomain() *delivery.Route {
	r := &delivery.Route{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		DriverID:            m.DriverID,
		Date:                m.Date,
		Origin:              m.Origin.ToDomain(),
		DistanceKm:          m.DistanceKm,
		Fee:                 money(m.Fee),
		Status:              m.Status,
		Stops:               make([]delivery.Stop, len(m.Stops)),
	}
	for i := range m.Stops {
		r.Stops[i] = m.Stops[i].ToDomain()
	}
	return r
}

// FromDomain populates the persistence model from a domain Route, including its stops
func (m *RouteModel) FromDomain(r *delivery.Route) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.DriverID = r.DriverID
	m.Date = r.Date
	m.Origin.FromDomain(r.Origin)
	m.DistanceKm = r.DistanceKm
	m.Fee = r.Fee.Amount()
	m.Status = r.Status
	m.Stops = make([]RouteStopModel, len(r.Stops))
	for i, s := range r.Stops {
		m.Stops[i] = RouteStopModel{
			ID:          s.ID,
			TenantID:    r.TenantID,
			RouteID:     r.ID,
			Sequence:    s.Sequence,
			ClientID:    s.ClientID,
			SaleID:      s.SaleID,
			Address:     s.Address,
			LegKm:       s.LegKm,
			Status:      s.Status,
			CompletedAt: s.CompletedAt,
			Note:        s.Note,
		}
		m.Stops[i].Location.FromDomain(s.Location)
	}
}

// RouteModelFromDomain creates a new persistence model from a domain Route
func RouteModelFromDomain(r *delivery.Route) *RouteModel {
	m := &RouteModel{}
	m.FromDomain(r)
	return m
}

// RouteStopModel is the persistence model for route drop-offs
type RouteStopModel struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID           `gorm:"type:uuid;not null;index"`
	RouteID     uuid.UUID           `gorm:"type:uuid;not null;index"`
	Sequence    int                 `gorm:"not null"`
	ClientID    uuid.UUID           `gorm:"type:uuid;not null;index"`
	SaleID      *uuid.UUID          `gorm:"type:uuid"`
	Address     string              `gorm:"type:varchar(500)"`
	Location    CoordinatesModel    `gorm:"embedded"`
	LegKm       decimal.Decimal     `gorm:"type:decimal(10,2);not null"`
	Status      delivery.StopStatus `gorm:"type:varchar(20);not null"`
	CompletedAt *time.Time
	Note        string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (RouteStopModel) TableName() string {
	return "delivery_stops"
}

// ToDomain converts the persistence model to a domain Stop
func (m *RouteStopModel) ToDomain() delivery.Stop {
	return delivery.Stop{
		ID:          m.ID,
		Sequence:    m.Sequence,
		ClientID:    m.ClientID,
		SaleID:      m.SaleID,
		Address:     m.Address,
		Location:    m.Location.ToDomain(),
		LegKm:       m.LegKm,
		Status:      m.Status,
		CompletedAt: m.CompletedAt,
		Note:        m.Note,
	}
}
