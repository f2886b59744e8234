package cache

import (
	"context"
	"sync"
	"time"

	"github.com/petshop/erp/internal/domain/shared"
)

// InMemoryIdempotencyStore implements IdempotencyStore with a map of expiry times.
// State is per process, so it fits single-instance deployments and tests.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	entries   map[string]time.Time // key -> expiresAt
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a store and starts its expiry sweeper
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return newInMemoryIdempotencyStore(5 * time.Minute)
}

func newInMemoryIdempotencyStore(sweepEvery time.Duration) *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		entries:  make(map[string]time.Time),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop(sweepEvery)

	return store
}

// MarkProcessed returns true if key was newly marked, false if it is already marked
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiresAt, exists := s.entries[key]; exists && now.Before(expiresAt) {
		return false, nil
	}
	s.entries[key] = now.Add(ttl)
	return true, nil
}

// Unmark forgets key
func (s *InMemoryIdempotencyStore) Unmark(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// IsProcessed reports whether key is marked and not expired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiresAt, exists := s.entries[key]
	return exists && time.Now().Before(expiresAt), nil
}

// Close stops the sweeper. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, expiresAt := range s.entries {
		if !now.Before(expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries, expired ones included until swept
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
