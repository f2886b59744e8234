package partner

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// AddressRequest is a delivery address in requests
type AddressRequest struct {
	Street       string   `json:"street" binding:"max=200"`
	Number       string   `json:"number" binding:"max=20"`
	Complement   string   `json:"complement" binding:"max=100"`
	Neighborhood string   `json:"neighborhood" binding:"max=100"`
	City         string   `json:"city" binding:"max=100"`
	State        string   `json:"state" binding:"omitempty,len=2"`
	ZipCode      string   `json:"zip_code" binding:"max=9"`
	Latitude     *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude" binding:"omitempty,longitude"`
}

// CreateClientRequest registers a client
type CreateClientRequest struct {
	Name     string          `json:"name" binding:"required,min=1,max=200"`
	Phone    string          `json:"phone" binding:"omitempty,phone_br"`
	Email    string          `json:"email" binding:"omitempty,email"`
	Document string          `json:"document" binding:"max=20"`
	Notes    string          `json:"notes" binding:"max=2000"`
	Address  *AddressRequest `json:"address"`
}

// UpdateClientRequest changes a client; nil fields are left untouched
type UpdateClientRequest struct {
	Name     *string         `json:"name" binding:"omitempty,min=1,max=200"`
	Phone    *string         `json:"phone" binding:"omitempty"`
	Email    *string         `json:"email" binding:"omitempty"`
	Document *string         `json:"document" binding:"omitempty,max=20"`
	Notes    *string         `json:"notes" binding:"omitempty,max=2000"`
	Address  *AddressRequest `json:"address"`
}

// AddPetRequest registers a pet under a client
type AddPetRequest struct {
	Name      string           `json:"name" binding:"required,min=1,max=100"`
	Species   string           `json:"species" binding:"required,oneof=dog cat bird other"`
	Breed     string           `json:"breed" binding:"max=100"`
	BirthDate *time.Time       `json:"birth_date"`
	WeightKg  *decimal.Decimal `json:"weight_kg"`
	Notes     string           `json:"notes" binding:"max=1000"`
}

// AddressResponse is the API view of an address
type AddressResponse struct {
	Street       string  `json:"street"`
	Number       string  `json:"number"`
	Complement   string  `json:"complement,omitempty"`
	Neighborhood string  `json:"neighborhood"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	ZipCode      string  `json:"zip_code"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

// PetResponse is the API view of a pet
type PetResponse struct {
	ID        uuid.UUID       `json:"id"`
	ClientID  uuid.UUID       `json:"client_id"`
	Name      string          `json:"name"`
	Species   string          `json:"species"`
	Breed     string          `json:"breed,omitempty"`
	BirthDate *time.Time      `json:"birth_date,omitempty"`
	WeightKg  decimal.Decimal `json:"weight_kg"`
	Notes     string          `json:"notes,omitempty"`
}

// ClientResponse is the API view of a client
type ClientResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone,omitempty"`
	Email     string          `json:"email,omitempty"`
	Document  string          `json:"document,omitempty"`
	Source    string          `json:"source"`
	Notes     string          `json:"notes,omitempty"`
	Address   AddressResponse `json:"address"`
	Pets      []PetResponse   `json:"pets,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ToClientResponse converts a domain client
func ToClientResponse(c *partner.Client) ClientResponse {
	resp := ClientResponse{
		ID:       c.ID,
		Name:     c.Name,
		Phone:    c.Phone.String(),
		Email:    c.Email,
		Document: c.Document,
		Source:   string(c.Source),
		Notes:    c.Notes,
		Address: AddressResponse{
			Street:       c.Address.Street,
			Number:       c.Address.Number,
			Complement:   c.Address.Complement,
			Neighborhood: c.Address.Neighborhood,
			City:         c.Address.City,
			State:        c.Address.State,
			ZipCode:      c.Address.ZipCode,
			Latitude:     c.Address.Location.Lat,
			Longitude:    c.Address.Location.Lng,
		},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for i := range c.Pets {
		resp.Pets = append(resp.Pets, ToPetResponse(&c.Pets[i]))
	}
	return resp
}

// ToPetResponse converts a domain pet
func ToPetResponse(p *partner.Pet) PetResponse {
	return PetResponse{
		ID:        p.ID,
		ClientID:  p.ClientID,
		Name:      p.Name,
		Species:   string(p.Species),
		Breed:     p.Breed,
		BirthDate: p.BirthDate,
		WeightKg:  p.WeightKg,
		Notes:     p.Notes,
	}
}
