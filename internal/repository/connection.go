// Package repository holds the in-memory registries for configuration
// scopes, binding configurations and server connections. Registries are
// externally mutable at any time; mutators publish change events on the bus.
package repository

import (
	"fmt"
	"strings"
	"sync"

	"sonarbind/internal/events"
)

// ConnectionKind discriminates the two supported server flavors.
type ConnectionKind string

const (
	// KindSonarQube is a self-hosted server identified by its base URL.
	KindSonarQube ConnectionKind = "sonarqube"
	// KindSonarCloud is the hosted service, optionally scoped to an organization.
	KindSonarCloud ConnectionKind = "sonarcloud"
)

// ConnectionConfiguration describes one configured server connection.
type ConnectionConfiguration struct {
	ID           string
	Kind         ConnectionKind
	URL          string // SonarQube only, stored normalized
	Organization string // SonarCloud only, may be empty
	Token        string
}

// NormalizeServerURL strips trailing slashes so URL comparisons are
// insensitive to how the user typed the address.
func NormalizeServerURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// IsSameServerURL reports whether the given URL points at this connection's
// server, ignoring trailing slashes.
func (c ConnectionConfiguration) IsSameServerURL(url string) bool {
	return c.URL == NormalizeServerURL(url)
}

// ConnectionRepository is the registry of configured connections.
type ConnectionRepository struct {
	mu   sync.RWMutex
	byID map[string]ConnectionConfiguration
	bus  *events.Bus
}

// NewConnectionRepository creates an empty registry publishing on the given bus.
func NewConnectionRepository(bus *events.Bus) *ConnectionRepository {
	return &ConnectionRepository{
		byID: make(map[string]ConnectionConfiguration),
		bus:  bus,
	}
}

func validateKind(c ConnectionConfiguration) error {
	switch c.Kind {
	case KindSonarQube, KindSonarCloud:
		return nil
	default:
		return fmt.Errorf("unknown connection kind %q for connection %q", c.Kind, c.ID)
	}
}

// Add registers a connection and announces it on the bus.
func (r *ConnectionRepository) Add(c ConnectionConfiguration) error {
	if err := validateKind(c); err != nil {
		return err
	}
	c.URL = NormalizeServerURL(c.URL)

	r.mu.Lock()
	if _, exists := r.byID[c.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("connection %q already exists", c.ID)
	}
	r.byID[c.ID] = c
	r.mu.Unlock()

	r.bus.Publish(events.ConnectionAdded{ConnectionID: c.ID})
	return nil
}

// Update replaces a connection's settings and announces the change.
func (r *ConnectionRepository) Update(c ConnectionConfiguration) error {
	if err := validateKind(c); err != nil {
		return err
	}
	c.URL = NormalizeServerURL(c.URL)

	r.mu.Lock()
	if _, exists := r.byID[c.ID]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("connection %q does not exist", c.ID)
	}
	r.byID[c.ID] = c
	r.mu.Unlock()

	r.bus.Publish(events.ConnectionUpdated{ConnectionID: c.ID})
	return nil
}

// Remove deletes a connection. Removing an unknown id is a no-op.
func (r *ConnectionRepository) Remove(id string) {
	r.mu.Lock()
	_, existed := r.byID[id]
	delete(r.byID, id)
	r.mu.Unlock()

	if existed {
		r.bus.Publish(events.ConnectionRemoved{ConnectionID: id})
	}
}

// Get returns the connection with the given id, or nil if it is gone.
func (r *ConnectionRepository) Get(id string) *ConnectionConfiguration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.byID[id]; ok {
		return &c
	}
	return nil
}

// AllIDs returns the ids of every configured connection.
func (r *ConnectionRepository) AllIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}
