package serverapi

import (
	"context"
	"fmt"
	"sync"

	"sonarbind/internal/events"
	"sonarbind/internal/logging"
	"sonarbind/internal/repository"
)

// Manager resolves connection ids to clients. Clients are built lazily and
// rebuilt when the connection's configuration changes.
type Manager struct {
	connections *repository.ConnectionRepository
	logger      *logging.Logger

	mu      sync.Mutex
	clients map[string]managedClient
}

type managedClient struct {
	client *Client
	config repository.ConnectionConfiguration
}

// NewManager creates a manager over the connection repository.
func NewManager(connections *repository.ConnectionRepository, logger *logging.Logger) *Manager {
	return &Manager{
		connections: connections,
		logger:      logger,
		clients:     make(map[string]managedClient),
	}
}

func (m *Manager) clientFor(connectionID string) (*Client, error) {
	conn := m.connections.Get(connectionID)
	if conn == nil {
		return nil, fmt.Errorf("connection %q does not exist", connectionID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if mc, ok := m.clients[connectionID]; ok && mc.config == *conn {
		return mc.client, nil
	}
	client := NewClient(*conn, m.logger)
	m.clients[connectionID] = managedClient{client: client, config: *conn}
	return client, nil
}

// Forget drops the cached client for a connection.
func (m *Manager) Forget(connectionID string) {
	m.mu.Lock()
	delete(m.clients, connectionID)
	m.mu.Unlock()
}

// RegisterEventHandlers drops cached clients when their connection changes
// or disappears.
func (m *Manager) RegisterEventHandlers(bus *events.Bus) {
	bus.Subscribe(events.TypeConnectionUpdated, func(e events.Event) {
		m.Forget(e.(events.ConnectionUpdated).ConnectionID)
	})
	bus.Subscribe(events.TypeConnectionRemoved, func(e events.Event) {
		m.Forget(e.(events.ConnectionRemoved).ConnectionID)
	})
}

// GetProject fetches one project on the given connection.
func (m *Manager) GetProject(ctx context.Context, connectionID, projectKey string) (*ServerProject, error) {
	client, err := m.clientFor(connectionID)
	if err != nil {
		return nil, err
	}
	return client.GetProject(ctx, projectKey)
}

// ListAllProjects fetches the project catalog of the given connection.
func (m *Manager) ListAllProjects(ctx context.Context, connectionID string) ([]ServerProject, error) {
	client, err := m.clientFor(connectionID)
	if err != nil {
		return nil, err
	}
	return client.ListAllProjects(ctx)
}
