package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/petshop/erp/internal/domain/shared"
)

// Upcaster rewrites a stored payload of one schema version into the next one
type Upcaster func(payload map[string]any) (map[string]any, error)

type upcasterKey struct {
	eventType string
	from      int
}

// EventSerializer handles JSON serialization/deserialization of domain events.
// Payloads stored with an older schema version are upcast before decoding.
type EventSerializer struct {
	mu        sync.RWMutex
	registry  map[string]reflect.Type // eventType -> Go type
	upcasters map[upcasterKey]Upcaster
}

// NewEventSerializer creates a new event serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		registry:  make(map[string]reflect.Type),
		upcasters: make(map[upcasterKey]Upcaster),
	}
}

// Register registers an event type for deserialization
// The eventType should match what EventType() returns on the event
func (s *EventSerializer) Register(eventType string, eventInstance shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(eventInstance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.registry[eventType] = t
}

// RegisterUpcaster installs fn to move payloads of eventType from fromVersion to fromVersion+1
func (s *EventSerializer) RegisterUpcaster(eventType string, fromVersion int, fn Upcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upcasters[upcasterKey{eventType: eventType, from: fromVersion}] = fn
}

// Serialize serializes a domain event to JSON bytes
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize deserializes JSON bytes to a domain event
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.registry[eventType]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	data, err := s.upcast(eventType, data)
	if err != nil {
		return nil, err
	}

	// Create new instance of the registered type
	eventPtr := reflect.New(t).Interface()

	if err := json.Unmarshal(data, eventPtr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	event, ok := eventPtr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("deserialized object does not implement DomainEvent")
	}

	return event, nil
}

// DeserializeStored decodes an event read from the event store
func (s *EventSerializer) DeserializeStored(stored shared.StoredEvent) (shared.DomainEvent, error) {
	return s.Deserialize(stored.EventType, stored.Payload)
}

// upcast applies registered upcasters until no step matches the payload's version
func (s *EventSerializer) upcast(eventType string, data []byte) ([]byte, error) {
	s.mu.RLock()
	hasAny := false
	for k := range s.upcasters {
		if k.eventType == eventType {
			hasAny = true
			break
		}
	}
	s.mu.RUnlock()
	if !hasAny {
		return data, nil
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to read event payload: %w", err)
	}

	version := 1
	if v, ok := payload["schema_version"].(float64); ok && v > 0 {
		version = int(v)
	}

	changed := false
	for {
		s.mu.RLock()
		fn, ok := s.upcasters[upcasterKey{eventType: eventType, from: version}]
		s.mu.RUnlock()
		if !ok {
			break
		}
		next, err := fn(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to upcast %s from v%d: %w", eventType, version, err)
		}
		version++
		next["schema_version"] = version
		payload = next
		changed = true
	}
	if !changed {
		return data, nil
	}
	return json.Marshal(payload)
}

// IsRegistered checks if an event type is registered
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[eventType]
	return ok
}

// RegisteredTypes returns all registered event types, sorted
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.registry))
	for t := range s.registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
