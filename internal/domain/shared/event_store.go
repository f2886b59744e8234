package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StoredEvent is a domain event as persisted in the append-only event log.
// Position is assigned by the store and is strictly increasing across all tenants.
type StoredEvent struct {
	Position      int64
	EventID       uuid.UUID
	EventType     string
	AggregateType string
	AggregateID   uuid.UUID
	TenantID      uuid.UUID
	SchemaVersion int
	Payload       []byte
	OccurredAt    time.Time
	RecordedAt    time.Time
}

// EventStore is the append-only log that read models are rebuilt from
type EventStore interface {
	// Append stores events inside tx and returns them with positions assigned
	Append(ctx context.Context, tx any, events ...DomainEvent) ([]StoredEvent, error)
	// LoadAfter returns up to limit events with position > after, in position order.
	// A nil tenantID loads events of every tenant.
	LoadAfter(ctx context.Context, tenantID *uuid.UUID, after int64, limit int) ([]StoredEvent, error)
	// LastPosition returns the highest position, optionally restricted to a tenant
	LastPosition(ctx context.Context, tenantID *uuid.UUID) (int64, error)
	// FindByEventID returns the stored form of an event
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*StoredEvent, error)
}
