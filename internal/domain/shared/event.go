package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents something that happened to an aggregate
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// BaseDomainEvent provides the envelope fields shared by all events.
// The json tags define the stored payload format, so renaming them breaks replay.
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggID         uuid.UUID `json:"aggregate_id"`
	AggType       string    `json:"aggregate_type"`
	TenantIDValue uuid.UUID `json:"tenant_id"`
	Version       int       `json:"schema_version,omitempty"`
}

func (e *BaseDomainEvent) EventID() uuid.UUID     { return e.ID }
func (e *BaseDomainEvent) EventType() string      { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time  { return e.Timestamp }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.AggID }
func (e *BaseDomainEvent) AggregateType() string  { return e.AggType }
func (e *BaseDomainEvent) TenantID() uuid.UUID    { return e.TenantIDValue }

// SchemaVersion returns the payload version, defaulting to 1
func (e *BaseDomainEvent) SchemaVersion() int {
	if e.Version == 0 {
		return 1
	}
	return e.Version
}

// NewBaseDomainEvent creates an event envelope stamped with the current time
func NewBaseDomainEvent(eventType, aggType string, aggID, tenantID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		AggID:         aggID,
		AggType:       aggType,
		TenantIDValue: tenantID,
		Version:       1,
	}
}
