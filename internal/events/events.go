// Package events provides a typed publish/subscribe bus for configuration
// and connection lifecycle notifications. Handlers are registered per event
// type and invoked synchronously by the publisher, in registration order.
package events

import (
	"sync"
)

// Type identifies a kind of event on the bus.
type Type string

const (
	// TypeConnectionAdded fires after a connection is registered.
	TypeConnectionAdded Type = "connection_added"
	// TypeConnectionUpdated fires after a connection's settings change.
	TypeConnectionUpdated Type = "connection_updated"
	// TypeConnectionRemoved fires after a connection is deleted.
	TypeConnectionRemoved Type = "connection_removed"
	// TypeScopesAdded fires after one or more configuration scopes appear.
	TypeScopesAdded Type = "scopes_added"
	// TypeBindingConfigChanged fires after a scope's binding configuration changes.
	TypeBindingConfigChanged Type = "binding_config_changed"
	// TypeClueFilesChanged fires when scanner configuration files are added or modified.
	TypeClueFilesChanged Type = "clue_files_changed"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	EventType() Type
}

// ConnectionAdded signals a newly registered connection.
type ConnectionAdded struct {
	ConnectionID string
}

// EventType implements Event.
func (ConnectionAdded) EventType() Type { return TypeConnectionAdded }

// ConnectionUpdated signals a mutated connection configuration.
type ConnectionUpdated struct {
	ConnectionID string
}

// EventType implements Event.
func (ConnectionUpdated) EventType() Type { return TypeConnectionUpdated }

// ConnectionRemoved signals a deleted connection.
type ConnectionRemoved struct {
	ConnectionID string
}

// EventType implements Event.
func (ConnectionRemoved) EventType() Type { return TypeConnectionRemoved }

// ScopesAdded signals newly created configuration scopes.
type ScopesAdded struct {
	ScopeIDs []string
}

// EventType implements Event.
func (ScopesAdded) EventType() Type { return TypeScopesAdded }

// BindingConfigChanged signals a change to a scope's binding configuration.
// The previous and new suggestion-disabled flags let subscribers detect the
// disabled-to-enabled transition without re-reading the repository.
type BindingConfigChanged struct {
	ScopeID                     string
	PreviousSuggestionsDisabled bool
	NewSuggestionsDisabled      bool
}

// EventType implements Event.
func (BindingConfigChanged) EventType() Type { return TypeBindingConfigChanged }

// ClueFilesChanged signals that scanner configuration files were added or
// updated in the listed scopes.
type ClueFilesChanged struct {
	ScopeIDs []string
}

// EventType implements Event.
func (ClueFilesChanged) EventType() Type { return TypeClueFilesChanged }

// Handler processes one published event.
type Handler func(Event)

// Bus dispatches events to subscribed handlers. Publishing is synchronous:
// Publish returns after every handler for the event's type has run.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]Handler),
	}
}

// Subscribe registers a handler for one event type. Handlers for the same
// type run in registration order.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish delivers the event to every handler registered for its type.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := b.handlers[e.EventType()]
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
