package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
)

// ErrUnknownEventType is returned for an event type with no registered factory
var ErrUnknownEventType = errors.New("unknown event type")

// EventSerializer is the outbox payload codec. It refuses unregistered
// types on both sides so the outbox never holds a row the processor
// cannot decode.
type EventSerializer struct {
	mu        sync.RWMutex
	factories map[string]func() shared.DomainEvent
}

// NewEventSerializer returns an empty serializer; see RegisterAllEvents
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{factories: map[string]func() shared.DomainEvent{}}
}

// Register binds eventType to a constructor of its zero event
func (s *EventSerializer) Register(eventType string, factory func() shared.DomainEvent) {
	s.mu.Lock()
	s.factories[eventType] = factory
	s.mu.Unlock()
}

// RegisterType binds eventType to *T
func RegisterType[T any, PT interface {
	*T
	shared.DomainEvent
}](s *EventSerializer, eventType string) {
	s.Register(eventType, func() shared.DomainEvent { return PT(new(T)) })
}

func (s *EventSerializer) factory(eventType string) (func() shared.DomainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.factories[eventType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}
	return f, nil
}

// Serialize encodes a registered event as JSON
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	if _, err := s.factory(event.EventType()); err != nil {
		return nil, err
	}
	return json.Marshal(event)
}

// Deserialize decodes data into the concrete type registered for eventType
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	newEvent, err := s.factory(eventType)
	if err != nil {
		return nil, err
	}
	event := newEvent()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return event, nil
}

// IsRegistered reports whether eventType can be encoded and decoded
func (s *EventSerializer) IsRegistered(eventType string) bool {
	_, err := s.factory(eventType)
	return err == nil
}

// RegisteredTypes lists the registered event types, sorted
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.factories))
}
