package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot is the consistency boundary that records domain events
type AggregateRoot interface {
	Entity
	GetVersion() int
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot implements event collection and optimistic versioning
type BaseAggregateRoot struct {
	BaseEntity
	Version       int
	loadedVersion int
	domainEvents  []DomainEvent
}

// GetVersion returns the version used for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion bumps the version after a state change
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
	a.Touch()
}

// LoadedVersion is the version last read from or written to storage.
// It is zero for aggregates that were never persisted.
func (a *BaseAggregateRoot) LoadedVersion() int {
	return a.loadedVersion
}

// IsNew reports whether the aggregate was never persisted
func (a *BaseAggregateRoot) IsNew() bool {
	return a.loadedVersion == 0
}

// MarkPersisted records that the current version matches storage
func (a *BaseAggregateRoot) MarkPersisted() {
	a.loadedVersion = a.Version
}

// AddDomainEvent records an event to be persisted with the aggregate
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns the recorded events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents drops recorded events once they are persisted
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates an aggregate root at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}

// TenantAggregateRoot is an aggregate owned by exactly one tenant
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID uuid.UUID
}

// NewTenantAggregateRoot creates an aggregate root owned by tenantID
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		TenantID:          tenantID,
	}
}

// BelongsTo reports whether the aggregate is owned by tenantID
func (t *TenantAggregateRoot) BelongsTo(tenantID uuid.UUID) bool {
	return t.TenantID == tenantID
}
