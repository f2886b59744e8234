package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	maxBackoff         = 10 * time.Minute
)

var (
	ErrOutboxNotClaimable = errors.New("outbox: only pending or failed entries can be claimed")
	ErrOutboxNotDead      = errors.New("outbox: only dead entries can be requeued")
)

// OutboxEntry tracks in-process delivery of one stored event to the event bus
type OutboxEntry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Position      int64
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry creates a pending entry for a stored event
func NewOutboxEntry(event StoredEvent) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      event.TenantID,
		EventID:       event.EventID,
		EventType:     event.EventType,
		AggregateID:   event.AggregateID,
		AggregateType: event.AggregateType,
		Position:      event.Position,
		Payload:       event.Payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CanRetry reports whether a failed entry has retries left
func (e *OutboxEntry) CanRetry() bool {
	return e.Status == OutboxStatusFailed && e.RetryCount < e.MaxRetries
}

// MarkProcessing claims the entry for delivery
func (e *OutboxEntry) MarkProcessing() error {
	if e.Status != OutboxStatusPending && e.Status != OutboxStatusFailed {
		return ErrOutboxNotClaimable
	}
	e.Status = OutboxStatusProcessing
	e.UpdatedAt = time.Now()
	return nil
}

// MarkSent records successful delivery
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
	e.LastError = ""
	e.NextRetryAt = nil
}

// MarkFailed records a delivery failure. The next attempt is scheduled after
// base·2^(n-1); once MaxRetries is reached the entry becomes dead.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	now := time.Now()
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = now

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}

	e.Status = OutboxStatusFailed
	next := now.Add(RetryBackoff(e.RetryCount))
	e.NextRetryAt = &next
}

// Requeue moves a dead entry back to pending
func (e *OutboxEntry) Requeue() error {
	if e.Status != OutboxStatusDead {
		return ErrOutboxNotDead
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now()
	return nil
}

// IsDead reports whether the entry exhausted its retries
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// RetryBackoff returns the delay before attempt number attempt+1
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		return DefaultBaseBackoff
	}
	if attempt > 20 {
		return maxBackoff
	}
	d := DefaultBaseBackoff * time.Duration(1<<uint(attempt-1))
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// OutboxRepository persists outbox entries
type OutboxRepository interface {
	Save(ctx context.Context, tx any, entries ...*OutboxEntry) error
	// ClaimBatch locks and marks as processing up to limit pending or due entries
	ClaimBatch(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	DeleteSentBefore(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
