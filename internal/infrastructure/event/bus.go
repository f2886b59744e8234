package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/petshop/erp/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrBusStopped is returned by Publish after Stop
var ErrBusStopped = errors.New("event bus: stopped")

// InMemoryEventBus implements EventBus with synchronous in-memory fan-out.
// Every subscribed handler sees every event; failures are collected, not
// short-circuited.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
	wg       sync.WaitGroup
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
	b.running.Store(true)
	return b
}

// Publish dispatches events to their handlers and returns the joined handler errors
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.running.Load() {
		return ErrBusStopped
	}
	b.wg.Add(1)
	defer b.wg.Done()

	var errs []error
	for _, event := range events {
		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			if err := b.dispatchToHandler(ctx, handler, event); err != nil {
				b.logger.Error("Handler failed to process event",
					zap.String("handler", HandlerName(handler)),
					zap.String("tenant_id", event.TenantID().String()),
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.Error(err),
				)
				errs = append(errs, fmt.Errorf("%s: %w", HandlerName(handler), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	// If handler specifies its own event types, use those
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Handler subscribed",
		zap.String("handler", HandlerName(handler)),
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("Handler unsubscribed", zap.String("handler", HandlerName(handler)))
}

// Start (re)opens the bus for publishing
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("Event bus started")
	return nil
}

// Stop refuses new publishes and waits for in-flight ones
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatchToHandler runs one handler, turning a panic into an error
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				zap.String("handler", HandlerName(handler)),
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return handler.Handle(ctx, event)
}

// NamedHandler is implemented by handlers that carry a stable name, used for
// idempotency keys and logs
type NamedHandler interface {
	Name() string
}

// HandlerName returns the handler's stable name, or its Go type
func HandlerName(h shared.EventHandler) string {
	if n, ok := h.(NamedHandler); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
