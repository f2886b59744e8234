// Package event exposes the tenant's outbox dead letters to shop administrators.
package event

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"go.uber.org/zap"
)

const requeueAllPageSize = 100

// OutboxService lists and requeues the context tenant's undelivered events
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

// NewOutboxService creates a new OutboxService
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, logger: logger}
}

// OutboxEntryResponse is an outbox entry without its payload
type OutboxEntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateType string     `json:"aggregate_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxStats counts entries per status
type OutboxStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// ListDead pages through dead entries, most recently failed first
func (s *OutboxService) ListDead(ctx context.Context, page, pageSize int) (*shared.Paginated[OutboxEntryResponse], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	entries, total, err := s.repo.FindDead(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	items := make([]OutboxEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = toOutboxEntryResponse(e)
	}
	result := shared.NewPaginated(items, total, page, pageSize)
	return &result, nil
}

// Requeue moves one dead entry back to pending
func (s *OutboxService) Requeue(ctx context.Context, id uuid.UUID) (*OutboxEntryResponse, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("OUTBOX_ENTRY_NOT_FOUND", "Outbox entry not found")
		}
		return nil, err
	}
	if err := entry.Requeue(); err != nil {
		return nil, shared.NewDomainError("OUTBOX_NOT_DEAD", "Only dead entries can be requeued")
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("outbox entry requeued",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
	)
	resp := toOutboxEntryResponse(entry)
	return &resp, nil
}

// RequeueAll moves every dead entry back to pending and returns how many moved.
// Requeued entries leave the dead set, so the first page is read until empty.
func (s *OutboxService) RequeueAll(ctx context.Context) (int64, error) {
	var count int64
	for {
		entries, _, err := s.repo.FindDead(ctx, 1, requeueAllPageSize)
		if err != nil {
			return count, err
		}
		if len(entries) == 0 {
			break
		}
		for _, entry := range entries {
			if err := entry.Requeue(); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				return count, err
			}
			count++
		}
		if len(entries) < requeueAllPageSize {
			break
		}
	}

	if count > 0 {
		s.logger.Info("dead outbox entries requeued", zap.Int64("count", count))
	}
	return count, nil
}

// Stats counts the tenant's entries per status
func (s *OutboxService) Stats(ctx context.Context) (*OutboxStats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &OutboxStats{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	stats.Total = stats.Pending + stats.Processing + stats.Sent + stats.Failed + stats.Dead
	return stats, nil
}

func toOutboxEntryResponse(e *shared.OutboxEntry) OutboxEntryResponse {
	return OutboxEntryResponse{
		ID:            e.ID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		Status:        string(e.Status),
		RetryCount:    e.RetryCount,
		MaxRetries:    e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
