package repository

import (
	"sync"

	"sonarbind/internal/events"
)

// ConfigurationScope is an IDE-visible workspace or folder that can be
// bound to a remote project. Scopes form a tree through ParentID.
type ConfigurationScope struct {
	ID       string
	ParentID string
	Name     string
	Bindable bool
}

// BindingConfiguration is the per-scope binding state.
type BindingConfiguration struct {
	ConnectionID        string
	ProjectKey          string
	SuggestionsDisabled bool
}

// IsSet reports whether both halves of the binding are present. Whether the
// connection id still resolves is checked by the caller against the
// connection repository.
func (b BindingConfiguration) IsSet() bool {
	return b.ConnectionID != "" && b.ProjectKey != ""
}

// ScopeWithBinding pairs a new scope with its initial binding configuration.
type ScopeWithBinding struct {
	Scope   ConfigurationScope
	Binding BindingConfiguration
}

// ConfigRepository is the registry of configuration scopes and their
// binding configurations.
type ConfigRepository struct {
	mu       sync.RWMutex
	scopes   map[string]ConfigurationScope
	bindings map[string]BindingConfiguration
	bus      *events.Bus
}

// NewConfigRepository creates an empty registry publishing on the given bus.
func NewConfigRepository(bus *events.Bus) *ConfigRepository {
	return &ConfigRepository{
		scopes:   make(map[string]ConfigurationScope),
		bindings: make(map[string]BindingConfiguration),
		bus:      bus,
	}
}

// AddScopes registers new scopes with their bindings and announces them in
// a single ScopesAdded event.
func (r *ConfigRepository) AddScopes(scopes ...ScopeWithBinding) {
	if len(scopes) == 0 {
		return
	}

	ids := make([]string, 0, len(scopes))
	r.mu.Lock()
	for _, s := range scopes {
		r.scopes[s.Scope.ID] = s.Scope
		r.bindings[s.Scope.ID] = s.Binding
		ids = append(ids, s.Scope.ID)
	}
	r.mu.Unlock()

	r.bus.Publish(events.ScopesAdded{ScopeIDs: ids})
}

// RemoveScope deletes a scope and its binding configuration.
func (r *ConfigRepository) RemoveScope(id string) {
	r.mu.Lock()
	delete(r.scopes, id)
	delete(r.bindings, id)
	r.mu.Unlock()
}

// SetBinding replaces a scope's binding configuration and announces the
// change, carrying the previous and new suggestion-disabled flags.
func (r *ConfigRepository) SetBinding(scopeID string, binding BindingConfiguration) {
	r.mu.Lock()
	previous := r.bindings[scopeID]
	r.bindings[scopeID] = binding
	r.mu.Unlock()

	r.bus.Publish(events.BindingConfigChanged{
		ScopeID:                     scopeID,
		PreviousSuggestionsDisabled: previous.SuggestionsDisabled,
		NewSuggestionsDisabled:      binding.SuggestionsDisabled,
	})
}

// GetScope returns the scope with the given id, or nil if it is gone.
func (r *ConfigRepository) GetScope(id string) *ConfigurationScope {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.scopes[id]; ok {
		return &s
	}
	return nil
}

// GetBinding returns the binding configuration for a scope, or nil if the
// scope is gone.
func (r *ConfigRepository) GetBinding(scopeID string) *BindingConfiguration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.scopes[scopeID]; !ok {
		return nil
	}
	b := r.bindings[scopeID]
	return &b
}

// AllScopeIDs returns the ids of every registered scope.
func (r *ConfigRepository) AllScopeIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.scopes))
	for id := range r.scopes {
		ids = append(ids, id)
	}
	return ids
}
