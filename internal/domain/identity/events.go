package identity

import (
	"github.com/petshop/erp/internal/domain/shared"
)

const (
	EventTypeTenantCreated = "TenantCreated"
	EventTypeUserCreated   = "UserCreated"
)

// TenantCreatedEvent is published when a pet shop is onboarded
type TenantCreatedEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// UserCreatedEvent is published when a staff user is created
type UserCreatedEvent struct {
	shared.BaseDomainEvent
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
