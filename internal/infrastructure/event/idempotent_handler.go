package event

import (
	"context"
	"sync/atomic"

	"github.com/petshop/erp/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyMetrics tracks idempotency-related statistics
type IdempotencyMetrics struct {
	// EventsProcessed is the total number of events processed (first time)
	EventsProcessed atomic.Int64

	// EventsDuplicate is the total number of duplicate events detected
	EventsDuplicate atomic.Int64

	// EventsFailed is the total number of events that failed to process
	EventsFailed atomic.Int64
}

// Stats returns a snapshot of the current metrics
func (m *IdempotencyMetrics) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: m.EventsProcessed.Load(),
		EventsDuplicate: m.EventsDuplicate.Load(),
		EventsFailed:    m.EventsFailed.Load(),
	}
}

// IdempotencyStats is a snapshot of idempotency metrics
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// IdempotentHandler wraps an EventHandler so each event is handled at most once
// per handler, even when the outbox redelivers it
type IdempotentHandler struct {
	handler shared.EventHandler
	name    string
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
	metrics *IdempotencyMetrics
}

// IdempotentHandlerOption is a functional option for IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig sets the idempotency configuration
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithIdempotencyMetrics sets the metrics collector
func WithIdempotencyMetrics(metrics *IdempotencyMetrics) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.metrics = metrics
	}
}

// NewIdempotentHandler creates a new idempotent handler wrapper
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	h := &IdempotentHandler{
		handler: handler,
		name:    HandlerName(handler),
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
		metrics: &IdempotencyMetrics{},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Name returns the wrapped handler's name
func (h *IdempotentHandler) Name() string {
	return h.name
}

// EventTypes returns the event types this handler is interested in
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Key returns the idempotency key of event for this handler
func (h *IdempotentHandler) Key(event shared.DomainEvent) string {
	return h.name + ":" + event.EventID().String()
}

// Handle processes the event with idempotency checking
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	key := h.Key(event)
	log := h.logger.With(
		zap.String("handler", h.name),
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
	)

	isNew, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	if err != nil {
		// Handlers are idempotent at the data level too; a store outage must not drop events
		log.Warn("Failed to check idempotency, processing anyway", zap.Error(err))
	} else if !isNew {
		h.metrics.EventsDuplicate.Add(1)
		log.Debug("Duplicate event detected, skipping")
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.metrics.EventsFailed.Add(1)
		log.Error("Event handler failed", zap.Error(err))
		// Release the key so the outbox retry runs the handler again
		if isNew {
			if unmarkErr := h.store.Unmark(ctx, key); unmarkErr != nil {
				log.Warn("Failed to release idempotency key", zap.Error(unmarkErr))
			}
		}
		return err
	}

	h.metrics.EventsProcessed.Add(1)
	log.Debug("Event processed successfully")
	return nil
}

// GetMetrics returns the metrics for this handler
func (h *IdempotentHandler) GetMetrics() *IdempotencyMetrics {
	return h.metrics
}

// GetWrappedHandler returns the underlying handler
func (h *IdempotentHandler) GetWrappedHandler() shared.EventHandler {
	return h.handler
}

// Ensure IdempotentHandler implements EventHandler
var _ shared.EventHandler = (*IdempotentHandler)(nil)

// WrapHandlersWithIdempotency wraps multiple handlers with idempotency checking
func WrapHandlersWithIdempotency(
	handlers []shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) []shared.EventHandler {
	wrapped := make([]shared.EventHandler, len(handlers))
	for i, h := range handlers {
		wrapped[i] = NewIdempotentHandler(h, store, logger, opts...)
	}
	return wrapped
}
