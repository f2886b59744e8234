package partner

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
)

const AggregateTypeClient = "Client"

// ClientSource records how the client first reached the shop
type ClientSource string

const (
	ClientSourceStore    ClientSource = "store"
	ClientSourceWhatsApp ClientSource = "whatsapp"
)

// Address is a delivery address with optional coordinates
type Address struct {
	Street       string                  `json:"street"`
	Number       string                  `json:"number"`
	Complement   string                  `json:"complement,omitempty"`
	Neighborhood string                  `json:"neighborhood"`
	City         string                  `json:"city"`
	State        string                  `json:"state"`
	ZipCode      string                  `json:"zip_code"`
	Location     valueobject.Coordinates `json:"location"`
}

// Client is a pet owner buying from the shop
type Client struct {
	shared.TenantAggregateRoot
	Name      string
	Phone     valueobject.Phone
	Email     string
	Document  string // CPF
	Address   Address
	Source    ClientSource
	Notes     string
	SearchKey string
	Pets      []Pet
}

// NewClient creates a client. Phone is optional for walk-in clients.
func NewClient(tenantID uuid.UUID, name, phone string, source ClientSource) (*Client, error) {
	c := &Client{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Source:              source,
	}
	if err := c.Rename(name); err != nil {
		return nil, err
	}
	if err := c.SetPhone(phone); err != nil {
		return nil, err
	}
	c.Version = 1
	c.AddDomainEvent(&ClientRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientRegistered, AggregateTypeClient, c.ID, tenantID),
		ClientID:        c.ID,
		Name:            c.Name,
		Phone:           c.Phone.String(),
		Source:          c.Source,
	})
	return c, nil
}

// Rename changes the display name and search key
func (c *Client) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Client name must be 1-200 characters")
	}
	c.Name = name
	c.SearchKey = valueobject.SearchKey(name)
	c.IncrementVersion()
	return nil
}

// SetPhone normalizes and sets the phone; empty clears it
func (c *Client) SetPhone(raw string) error {
	if strings.TrimSpace(raw) == "" {
		c.Phone = ""
		return nil
	}
	p, err := valueobject.NewPhone(raw)
	if err != nil {
		return shared.WrapDomainError("INVALID_PHONE", "Invalid phone number", err)
	}
	c.Phone = p
	c.IncrementVersion()
	return nil
}

// SetEmail validates and sets the email; empty clears it
func (c *Client) SetEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return shared.NewDomainError("INVALID_EMAIL", "Invalid email address")
		}
	}
	c.Email = email
	c.IncrementVersion()
	return nil
}

// SetAddress replaces the delivery address
func (c *Client) SetAddress(a Address) {
	c.Address = a
	c.IncrementVersion()
}

// MarkUpdated publishes the client's current details after an edit
func (c *Client) MarkUpdated() {
	c.AddDomainEvent(&ClientUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientUpdated, AggregateTypeClient, c.ID, c.TenantID),
		ClientID:        c.ID,
		Name:            c.Name,
		Phone:           c.Phone.String(),
		Email:           c.Email,
		ClientVersion:   c.Version,
	})
}

// HasDeliveryLocation reports whether routes can be planned to this client
func (c *Client) HasDeliveryLocation() bool {
	return !c.Address.Location.IsZero()
}

// AddPet registers a pet under this client
func (c *Client) AddPet(name string, species Species, breed string) (*Pet, error) {
	pet, err := NewPet(c.TenantID, c.ID, name, species, breed)
	if err != nil {
		return nil, err
	}
	c.Pets = append(c.Pets, *pet)
	c.AddDomainEvent(&PetAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePetAdded, AggregateTypeClient, c.ID, c.TenantID),
		PetID:           pet.ID,
		Name:            pet.Name,
		Species:         pet.Species,
	})
	return pet, nil
}
