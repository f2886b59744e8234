package event

import (
	"context"
	"sync"
	"time"

	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"go.uber.org/zap"
)

// OutboxProcessorConfig holds configuration for the outbox processor
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultOutboxProcessorConfig returns default configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// OutboxProcessor delivers committed events from the outbox to the event bus.
// Each entry is published under its own tenant context, so projection handlers
// see exactly one tenant.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	eventBus   shared.EventBus
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	eventBus shared.EventBus,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxProcessor{
		repo:       repo,
		eventBus:   eventBus,
		serializer: serializer,
		config:     config,
		logger:     logger,
	}
}

// Start starts the background processing
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(tenant.WithSystemScope(ctx, "outbox processor"))
	p.cancel = cancel

	p.wg.Add(1)
	go p.processLoop(ctx)

	if p.config.CleanupEnabled && p.config.CleanupInterval > 0 {
		p.wg.Add(1)
		go p.cleanupLoop(ctx)
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)

	return nil
}

// Stop gracefully stops the processor
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) processLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// drain the backlog before waiting for the next tick
			for {
				n, err := p.ProcessOnce(ctx)
				if err != nil || n < p.config.BatchSize || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// ProcessOnce claims one batch and delivers it. Returns the number of entries claimed.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) (int, error) {
	if !tenant.IsSystemScope(ctx) {
		ctx = tenant.WithSystemScope(ctx, "outbox processor")
	}

	claimed, err := p.repo.ClaimBatch(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to claim outbox entries", zap.Error(err))
		return 0, err
	}

	for _, entry := range claimed {
		p.processEntry(ctx, entry)
	}
	return len(claimed), nil
}

// processEntry publishes a single claimed entry and records the outcome
func (p *OutboxProcessor) processEntry(ctx context.Context, entry *shared.OutboxEntry) {
	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		p.logger.Error("failed to deserialize event",
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.Error(err),
		)
		p.fail(ctx, entry, err)
		return
	}

	tenantCtx := tenant.ContextWithTenant(tenant.LeaveSystemScope(ctx), entry.TenantID)
	if err := p.eventBus.Publish(tenantCtx, event); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.String("tenant_id", entry.TenantID.String()),
			zap.Error(err),
		)
		p.fail(ctx, entry, err)
		return
	}

	entry.MarkSent()
	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to mark entry as sent",
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("event delivered",
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.Int64("position", entry.Position),
	)
}

func (p *OutboxProcessor) fail(ctx context.Context, entry *shared.OutboxEntry, cause error) {
	entry.MarkFailed(cause.Error())
	if entry.IsDead() {
		p.logger.Warn("event moved to dead letter queue",
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.String("aggregate_type", entry.AggregateType),
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.String("tenant_id", entry.TenantID.String()),
			zap.Int("retry_count", entry.RetryCount),
			zap.String("last_error", entry.LastError),
		)
	}
	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to update entry", zap.Error(err))
	}
}

func (p *OutboxProcessor) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Cleanup(ctx)
		}
	}
}

// Cleanup removes delivered entries older than the retention window
func (p *OutboxProcessor) Cleanup(ctx context.Context) int64 {
	if !tenant.IsSystemScope(ctx) {
		ctx = tenant.WithSystemScope(ctx, "outbox cleanup")
	}
	cutoff := time.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to cleanup old entries", zap.Error(err))
		return 0
	}

	if deleted > 0 {
		p.logger.Info("cleaned up old outbox entries",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted
}
