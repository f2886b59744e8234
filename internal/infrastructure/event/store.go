package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormEventStore implements shared.EventStore on the domain_events table.
// Positions come from the table's identity column, so they are global and
// strictly increasing across tenants.
type GormEventStore struct {
	db         *tenant.TenantDB
	serializer *EventSerializer
}

// NewGormEventStore creates a new GormEventStore
func NewGormEventStore(db *tenant.TenantDB, serializer *EventSerializer) *GormEventStore {
	return &GormEventStore{db: db, serializer: serializer}
}

type schemaVersioned interface {
	SchemaVersion() int
}

// Append stores events inside tx (a *gorm.DB). Rows are inserted one at a time so
// every driver reports the assigned position.
func (s *GormEventStore) Append(ctx context.Context, tx any, events ...shared.DomainEvent) ([]shared.StoredEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}
	db, ok := tx.(*gorm.DB)
	if !ok || db == nil {
		db = s.db.WithContext(ctx)
	}

	now := time.Now().UTC()
	stored := make([]shared.StoredEvent, 0, len(events))
	for _, e := range events {
		payload, err := s.serializer.Serialize(e)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize %s: %w", e.EventType(), err)
		}
		version := 1
		if v, ok := e.(schemaVersioned); ok {
			version = v.SchemaVersion()
		}
		row := &models.DomainEventModel{
			EventID:       e.EventID(),
			EventType:     e.EventType(),
			AggregateType: e.AggregateType(),
			AggregateID:   e.AggregateID(),
			TenantID:      e.TenantID(),
			SchemaVersion: version,
			Payload:       payload,
			OccurredAt:    e.OccurredAt(),
			RecordedAt:    now,
		}
		if err := db.Create(row).Error; err != nil {
			if errors.Is(err, tenant.ErrTenantMismatch) {
				return nil, fmt.Errorf("event %s belongs to another tenant: %w", e.EventType(), shared.ErrTenantMismatch)
			}
			return nil, fmt.Errorf("failed to append %s: %w", e.EventType(), err)
		}
		stored = append(stored, row.ToDomain())
	}
	return stored, nil
}

// scoped returns a session over one tenant's events, or over all of them when
// tenantID is nil and ctx is system-scoped. Outside system scope tenantID must be
// the context tenant.
func (s *GormEventStore) scoped(ctx context.Context, tenantID *uuid.UUID) (*gorm.DB, error) {
	if tenantID == nil {
		if !tenant.IsSystemScope(ctx) {
			return nil, ErrSystemScopeRequired
		}
		return s.db.WithContext(ctx).Model(&models.DomainEventModel{}), nil
	}
	if !tenant.IsSystemScope(ctx) {
		current, ok, err := tenant.FromContext(ctx)
		if err != nil {
			return nil, err
		}
		if ok && current != *tenantID {
			return nil, shared.ErrTenantMismatch
		}
	}
	return s.db.WithContext(ctx).Model(&models.DomainEventModel{}).Where("tenant_id = ?", *tenantID), nil
}

// LoadAfter returns up to limit events with position > after, in position order
func (s *GormEventStore) LoadAfter(ctx context.Context, tenantID *uuid.UUID, after int64, limit int) ([]shared.StoredEvent, error) {
	query, err := s.scoped(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var rows []models.DomainEventModel
	if err := query.
		Where("position > ?", after).
		Order("position ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	out := make([]shared.StoredEvent, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// LastPosition returns the head of the log, optionally for one tenant. 0 when empty.
func (s *GormEventStore) LastPosition(ctx context.Context, tenantID *uuid.UUID) (int64, error) {
	query, err := s.scoped(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	var head sql.NullInt64
	if err := query.Select("MAX(position)").Row().Scan(&head); err != nil {
		return 0, fmt.Errorf("failed to read event head: %w", err)
	}
	return head.Int64, nil
}

// FindByEventID returns the stored form of an event of the context tenant
func (s *GormEventStore) FindByEventID(ctx context.Context, eventID uuid.UUID) (*shared.StoredEvent, error) {
	var row models.DomainEventModel
	if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	stored := row.ToDomain()
	return &stored, nil
}

var _ shared.EventStore = (*GormEventStore)(nil)

// Recorder implements shared.EventRecorder: every event an aggregate raised is
// appended to the event store and queued in the outbox, both inside the
// aggregate's own transaction
type Recorder struct {
	store  *GormEventStore
	outbox *GormOutboxRepository
	// maxRetries overrides the outbox default when positive
	maxRetries int
}

// NewRecorder creates a Recorder
func NewRecorder(store *GormEventStore, outbox *GormOutboxRepository, maxRetries int) *Recorder {
	return &Recorder{store: store, outbox: outbox, maxRetries: maxRetries}
}

// Record appends events and their outbox entries within tx
func (r *Recorder) Record(ctx context.Context, tx any, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	stored, err := r.store.Append(ctx, tx, events...)
	if err != nil {
		return err
	}
	entries := make([]*shared.OutboxEntry, len(stored))
	for i, se := range stored {
		entries[i] = shared.NewOutboxEntry(se)
		if r.maxRetries > 0 {
			entries[i].MaxRetries = r.maxRetries
		}
	}
	if err := r.outbox.Save(ctx, tx, entries...); err != nil {
		return fmt.Errorf("failed to enqueue outbox entries: %w", err)
	}
	return nil
}

var _ shared.EventRecorder = (*Recorder)(nil)
