package partner

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Species of a pet
type Species string

const (
	SpeciesDog   Species = "dog"
	SpeciesCat   Species = "cat"
	SpeciesBird  Species = "bird"
	SpeciesOther Species = "other"
)

// Pet belongs to a client
type Pet struct {
	shared.BaseEntity
	TenantID  uuid.UUID
	ClientID  uuid.UUID
	Name      string
	Species   Species
	Breed     string
	BirthDate *time.Time
	WeightKg  decimal.Decimal
	Notes     string
}

// NewPet validates and creates a pet
func NewPet(tenantID, clientID uuid.UUID, name string, species Species, breed string) (*Pet, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_NAME", "Pet name must be 1-100 characters")
	}
	switch species {
	case SpeciesDog, SpeciesCat, SpeciesBird, SpeciesOther:
	default:
		return nil, shared.NewDomainError("INVALID_SPECIES", "Unknown species: "+string(species))
	}
	return &Pet{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		ClientID:   clientID,
		Name:       name,
		Species:    species,
		Breed:      strings.TrimSpace(breed),
	}, nil
}

// AgeYears returns the completed years of age at the given instant, or -1 if unknown
func (p *Pet) AgeYears(at time.Time) int {
	if p.BirthDate == nil {
		return -1
	}
	b := *p.BirthDate
	years := at.Year() - b.Year()
	if at.Month() < b.Month() || (at.Month() == b.Month() && at.Day() < b.Day()) {
		years--
	}
	return years
}
