package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/partner"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AddressModel stores a client address inline
type AddressModel struct {
	Street       string           `gorm:"type:varchar(200)"`
	Number       string           `gorm:"type:varchar(20)"`
	Complement   string           `gorm:"type:varchar(100)"`
	Neighborhood string           `gorm:"type:varchar(100)"`
	City         string           `gorm:"type:varchar(100)"`
	State        string           `gorm:"type:varchar(2)"`
	ZipCode      string           `gorm:"type:varchar(9)"`
	Location     CoordinatesModel `gorm:"embedded"`
}

// ClientModel is the persistence model for clients
type ClientModel struct {
	TenantAggregateModel
	Name      string               `gorm:"type:varchar(200);not null"`
	Phone     string               `gorm:"type:varchar(15);index"`
	Email     string               `gorm:"type:varchar(254)"`
	Document  string               `gorm:"type:varchar(14)"`
	Address   AddressModel         `gorm:"embedded;embeddedPrefix:address_"`
	Source    partner.ClientSource `gorm:"type:varchar(20);not null"`
	Notes     string               `gorm:"type:text"`
	SearchKey string               `gorm:"type:varchar(255);index"`
	Pets      []PetModel           `gorm:"foreignKey:ClientID"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client
func (m *ClientModel) ToDomain() *partner.Client {
	c := &partner.Client{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		Name:                m.Name,
		Phone:               valueobject.Phone(m.Phone),
		Email:               m.Email,
		Document:            m.Document,
		Address: partner.Address{
			Street:       m.Address.Street,
			Number:       m.Address.Number,
			Complement:   m.Address.Complement,
			Neighborhood: m.Address.Neighborhood,
			City:         m.Address.City,
			State:        m.Address.State,
			ZipCode:      m.Address.ZipCode,
			Location:     m.Address.Location.ToDomain(),
		},
		Source:    m.Source,
		Notes:     m.Notes,
		SearchKey: m.SearchKey,
	}
	if len(m.Pets) > 0 {
		c.Pets = make([]partner.Pet, len(m.Pets))
		for i := range m.Pets {
			c.Pets[i] = *m.Pets[i].ToDomain()
		}
	}
	return c
}

// FromDomain populates the persistence model from a domain Client.
// Pets are mapped separately by the repository.
func (m *ClientModel) FromDomain(c *partner.Client) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.Name = c.Name
	m.Phone = c.Phone.String()
	m.Email = c.Email
	m.Document = c.Document
	m.Address = AddressModel{
		Street:       c.Address.Street,
		Number:       c.Address.Number,
		Complement:   c.Address.Complement,
		Neighborhood: c.Address.Neighborhood,
		City:         c.Address.City,
		State:        c.Address.State,
		ZipCode:      c.Address.ZipCode,
	}
	m.Address.Location.FromDomain(c.Address.Location)
	m.Source = c.Source
	m.Notes = c.Notes
	m.SearchKey = c.SearchKey
}

// ClientModelFromDomain creates a new persistence model from a domain Client
func ClientModelFromDomain(c *partner.Client) *ClientModel {
	m := &ClientModel{}
	m.FromDomain(c)
	return m
}

// PetModel is the persistence model for pets
type PetModel struct {
	BaseModel
	TenantID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClientID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name      string          `gorm:"type:varchar(100);not null"`
	Species   partner.Species `gorm:"type:varchar(20);not null"`
	Breed     string          `gorm:"type:varchar(100)"`
	BirthDate *time.Time      `gorm:"type:date"`
	WeightKg  decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0"`
	Notes     string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PetModel) TableName() string {
	return "pets"
}

// ToDomain converts the persistence model to a domain Pet
func (m *PetModel) ToDomain() *partner.Pet {
	return &partner.Pet{
		BaseEntity: m.BaseModel.ToDomain(),
		TenantID:   m.TenantID,
		ClientID:   m.ClientID,
		Name:       m.Name,
		Species:    m.Species,
		Breed:      m.Breed,
		BirthDate:  m.BirthDate,
		WeightKg:   m.WeightKg,
		Notes:      m.Notes,
	}
}

// PetModelFromDomain creates a new persistence model from a domain Pet
func PetModelFromDomain(p *partner.Pet) *PetModel {
	m := &PetModel{
		TenantID:  p.TenantID,
		ClientID:  p.ClientID,
		Name:      p.Name,
		Species:   p.Species,
		Breed:     p.Breed,
		BirthDate: p.BirthDate,
		WeightKg:  p.WeightKg,
		Notes:     p.Notes,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}
