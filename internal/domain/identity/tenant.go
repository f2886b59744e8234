package identity

import (
	"regexp"
	"strings"

	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
)

// TenantStatus is the lifecycle state of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
)

const AggregateTypeTenant = "Tenant"

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// Tenant is a pet shop organization. It is the root of isolation and is not itself tenant-scoped.
type Tenant struct {
	shared.BaseAggregateRoot
	Name            string
	Slug            string
	Status          TenantStatus
	Document        string // CNPJ
	WhatsAppPhoneID string // Cloud API phone-number id that receives this shop's messages
	ShopLocation    valueobject.Coordinates
}

// NewTenant creates an active tenant
func NewTenant(name, slug string) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Tenant name must be 1-200 characters")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return nil, shared.NewDomainError("INVALID_SLUG", "Slug must be lowercase letters, digits or dashes")
	}

	t := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Slug:              slug,
		Status:            TenantStatusActive,
	}
	t.AddDomainEvent(&TenantCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantCreated, AggregateTypeTenant, t.ID, t.ID),
		Name:            t.Name,
		Slug:            t.Slug,
	})
	return t, nil
}

// IsActive reports whether the tenant may log in and transact
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// Suspend blocks logins for the tenant
func (t *Tenant) Suspend() error {
	if t.Status == TenantStatusSuspended {
		return shared.NewDomainError("INVALID_STATE", "Tenant is already suspended")
	}
	t.Status = TenantStatusSuspended
	t.IncrementVersion()
	return nil
}

// Activate re-enables a suspended tenant
func (t *Tenant) Activate() error {
	if t.Status == TenantStatusActive {
		return shared.NewDomainError("INVALID_STATE", "Tenant is already active")
	}
	t.Status = TenantStatusActive
	t.IncrementVersion()
	return nil
}

// SetShopLocation sets the delivery origin of the shop
func (t *Tenant) SetShopLocation(c valueobject.Coordinates) {
	t.ShopLocation = c
	t.IncrementVersion()
}

// LinkWhatsApp associates a WhatsApp Cloud API phone-number id with the tenant
func (t *Tenant) LinkWhatsApp(phoneID string) {
	t.WhatsAppPhoneID = strings.TrimSpace(phoneID)
	t.IncrementVersion()
}
