package partner

import (
	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
)

const (
	EventTypeClientRegistered = "ClientRegistered"
	EventTypeClientUpdated    = "ClientUpdated"
	EventTypePetAdded         = "PetAdded"
)

// ClientRegisteredEvent is published when a client is created in the store or from WhatsApp
type ClientRegisteredEvent struct {
	shared.BaseDomainEvent
	ClientID uuid.UUID    `json:"client_id"`
	Name     string       `json:"name"`
	Phone    string       `json:"phone,omitempty"`
	Source   ClientSource `json:"source"`
}

// ClientUpdatedEvent is published when a client's details are edited
type ClientUpdatedEvent struct {
	shared.BaseDomainEvent
	ClientID uuid.UUID `json:"client_id"`
	Name     string    `json:"name"`
	Phone    string    `json:"phone,omitempty"`
	Email    string    `json:"email,omitempty"`

	// ClientVersion is the client version after the edit
	ClientVersion int `json:"client_version"`
}

// PetAddedEvent is published when a pet is registered for a client
type PetAddedEvent struct {
	shared.BaseDomainEvent
	PetID   uuid.UUID `json:"pet_id"`
	Name    string    `json:"name"`
	Species Species   `json:"species"`
}
