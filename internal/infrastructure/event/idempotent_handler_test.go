package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockEventHandler is a mock implementation of shared.EventHandler
type MockEventHandler struct {
	mock.Mock
}

func (m *MockEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventHandler) EventTypes() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Unmark(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newIdempotencyTestEvent() *testEvent {
	return newTestEvent("SaleCompleted", uuid.New())
}

func newIdempotencyTestStore(t *testing.T) *cache.InMemoryIdempotencyStore {
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestIdempotentHandler_Handle_NewEvent(t *testing.T) {
	store := newIdempotencyTestStore(t)
	mockHandler := new(MockEventHandler)
	event := newIdempotencyTestEvent()
	mockHandler.On("Handle", mock.Anything, event).Return(nil)

	handler := NewIdempotentHandler(mockHandler, store, zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), event))

	mockHandler.AssertExpectations(t)
	assert.Equal(t, int64(1), handler.metrics.EventsProcessed.Load())
	assert.Equal(t, int64(0), handler.metrics.EventsDuplicate.Load())

	processed, err := store.IsProcessed(context.Background(), handler.Key(event))
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestIdempotentHandler_Handle_DuplicateEvent(t *testing.T) {
	store := newIdempotencyTestStore(t)
	mockHandler := new(MockEventHandler)
	event := newIdempotencyTestEvent()
	mockHandler.On("Handle", mock.Anything, event).Return(nil).Once()

	handler := NewIdempotentHandler(mockHandler, store, zap.NewNop())

	for i := 0; i < 3; i++ {
		require.NoError(t, handler.Handle(context.Background(), event))
	}

	mockHandler.AssertExpectations(t)
	assert.Equal(t, int64(1), handler.metrics.EventsProcessed.Load())
	assert.Equal(t, int64(2), handler.metrics.EventsDuplicate.Load())
}

func TestIdempotentHandler_KeysArePerHandler(t *testing.T) {
	store := newIdempotencyTestStore(t)
	event := newIdempotencyTestEvent()

	receivables := namedTestHandler{testHandler: newTestHandler("SaleCompleted"), name: "finance.receivables"}
	commissions := namedTestHandler{testHandler: newTestHandler("SaleCompleted"), name: "finance.commissions"}
	h1 := NewIdempotentHandler(receivables, store, zap.NewNop())
	h2 := NewIdempotentHandler(commissions, store, zap.NewNop())

	require.NoError(t, h1.Handle(context.Background(), event))
	require.NoError(t, h2.Handle(context.Background(), event))

	assert.Len(t, receivables.getHandled(), 1)
	assert.Len(t, commissions.getHandled(), 1, "one handler's mark must not hide the event from another")
	assert.Equal(t, "finance.receivables:"+event.EventID().String(), h1.Key(event))
	assert.Equal(t, "finance.receivables", h1.Name())
}

func TestIdempotentHandler_Handle_FailureReleasesKey(t *testing.T) {
	store := newIdempotencyTestStore(t)
	mockHandler := new(MockEventHandler)
	event := newIdempotencyTestEvent()
	expectedErr := errors.New("handler error")

	mockHandler.On("Handle", mock.Anything, event).Return(expectedErr).Once()
	mockHandler.On("Handle", mock.Anything, event).Return(nil).Once()

	handler := NewIdempotentHandler(mockHandler, store, zap.NewNop())

	err := handler.Handle(context.Background(), event)
	assert.Equal(t, expectedErr, err)
	assert.Equal(t, int64(1), handler.metrics.EventsFailed.Load())

	// The outbox retry must reach the handler again
	require.NoError(t, handler.Handle(context.Background(), event))
	mockHandler.AssertExpectations(t)
	assert.Equal(t, int64(1), handler.metrics.EventsProcessed.Load())
}

func TestIdempotentHandler_Handle_StoreError(t *testing.T) {
	mockStore := new(MockIdempotencyStore)
	mockHandler := new(MockEventHandler)
	event := newIdempotencyTestEvent()

	handler := NewIdempotentHandler(mockHandler, mockStore, zap.NewNop())
	mockStore.On("MarkProcessed", mock.Anything, handler.Key(event), mock.Anything).
		Return(false, errors.New("store error"))
	mockHandler.On("Handle", mock.Anything, event).Return(errors.New("still failing"))

	err := handler.Handle(context.Background(), event)
	require.Error(t, err)

	mockStore.AssertExpectations(t)
	mockStore.AssertNotCalled(t, "Unmark", mock.Anything, mock.Anything)
	mockHandler.AssertExpectations(t)
}

func TestIdempotentHandler_Handle_Disabled(t *testing.T) {
	store := newIdempotencyTestStore(t)
	mockHandler := new(MockEventHandler)
	event := newIdempotencyTestEvent()
	mockHandler.On("Handle", mock.Anything, event).Return(nil).Times(3)

	config := shared.DefaultIdempotencyConfig()
	config.Enabled = false
	handler := NewIdempotentHandler(mockHandler, store, zap.NewNop(), WithIdempotencyConfig(config))

	for i := 0; i < 3; i++ {
		require.NoError(t, handler.Handle(context.Background(), event))
	}

	mockHandler.AssertExpectations(t)
	assert.Equal(t, int64(0), handler.metrics.EventsProcessed.Load())
	assert.Equal(t, 0, store.Size())
}

func TestIdempotentHandler_EventTypes(t *testing.T) {
	mockHandler := new(MockEventHandler)
	expectedTypes := []string{"SaleCompleted", "SaleCancelled"}
	mockHandler.On("EventTypes").Return(expectedTypes)

	handler := NewIdempotentHandler(mockHandler, newIdempotencyTestStore(t), zap.NewNop())

	assert.Equal(t, expectedTypes, handler.EventTypes())
	assert.Equal(t, mockHandler, handler.GetWrappedHandler())
}

func TestWrapHandlersWithIdempotency_SharedMetrics(t *testing.T) {
	store := newIdempotencyTestStore(t)
	sharedMetrics := &IdempotencyMetrics{}

	h1 := newTestHandler("SaleCompleted")
	h2 := newTestHandler("SaleCompleted")
	wrapped := WrapHandlersWithIdempotency([]shared.EventHandler{h1, h2}, store, zap.NewNop(),
		WithIdempotencyMetrics(sharedMetrics))
	require.Len(t, wrapped, 2)

	for _, h := range wrapped {
		require.NoError(t, h.Handle(context.Background(), newIdempotencyTestEvent()))
	}

	stats := sharedMetrics.Stats()
	assert.Equal(t, int64(2), stats.EventsProcessed)
	assert.Equal(t, int64(0), stats.EventsFailed)
}

func TestIdempotentHandler_ConcurrentDuplicates(t *testing.T) {
	store := newIdempotencyTestStore(t)
	mockHandler := new(MockEventHandler)
	event := newIdempotencyTestEvent()
	mockHandler.On("Handle", mock.Anything, event).Return(nil).Once()

	handler := NewIdempotentHandler(mockHandler, store, zap.NewNop())

	const numGoroutines = 50
	errChan := make(chan error, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			errChan <- handler.Handle(context.Background(), event)
		}()
	}
	for i := 0; i < numGoroutines; i++ {
		assert.NoError(t, <-errChan)
	}

	mockHandler.AssertExpectations(t)
	assert.Equal(t, int64(1), handler.metrics.EventsProcessed.Load())
	assert.Equal(t, int64(numGoroutines-1), handler.metrics.EventsDuplicate.Load())
}
