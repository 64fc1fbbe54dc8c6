package projects

import (
	"context"
	"sync"
	"time"

	"sonarbind/internal/events"
	"sonarbind/internal/logging"
	"sonarbind/internal/serverapi"
)

// DefaultTTL is how long cached lookups stay valid without invalidation.
const DefaultTTL = time.Hour

// ServerSource is the remote collaborator the resolver queries on cache
// misses. Implemented by serverapi.Manager.
type ServerSource interface {
	GetProject(ctx context.Context, connectionID, projectKey string) (*serverapi.ServerProject, error)
	ListAllProjects(ctx context.Context, connectionID string) ([]serverapi.ServerProject, error)
}

type projectKey struct {
	connectionID string
	projectKey   string
}

// entry is a cached value with its creation time. The ready channel closes
// once the loader has filled the value, so concurrent callers for the same
// key share one load.
type entry[T any] struct {
	ready      chan struct{}
	value      T
	insertedAt time.Time
}

// Resolver caches single-project lookups and per-connection search indexes.
// A remote failure is logged and cached as an absent result for the full
// TTL window, mirroring the lookup that produced it.
type Resolver struct {
	source ServerSource
	logger *logging.Logger
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	projects map[projectKey]*entry[*serverapi.ServerProject]
	indexes  map[string]*entry[*SearchIndex]
}

// NewResolver creates a resolver with the given TTL; ttl <= 0 uses DefaultTTL.
func NewResolver(source ServerSource, logger *logging.Logger, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{
		source:   source,
		logger:   logger,
		ttl:      ttl,
		now:      time.Now,
		projects: make(map[projectKey]*entry[*serverapi.ServerProject]),
		indexes:  make(map[string]*entry[*SearchIndex]),
	}
}

// SetClock overrides the time source. Used by tests to move past the TTL.
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

func fresh[T any](e *entry[T], now time.Time, ttl time.Duration) bool {
	return now.Sub(e.insertedAt) < ttl
}

// GetProject resolves a single project on a connection. It returns nil when
// the project does not exist or the lookup failed; both outcomes are cached.
func (r *Resolver) GetProject(ctx context.Context, connectionID, key string) *serverapi.ServerProject {
	k := projectKey{connectionID: connectionID, projectKey: key}

	r.mu.Lock()
	if e, ok := r.projects[k]; ok && fresh(e, r.now(), r.ttl) {
		r.mu.Unlock()
		<-e.ready
		return e.value
	}
	e := &entry[*serverapi.ServerProject]{ready: make(chan struct{}), insertedAt: r.now()}
	r.projects[k] = e
	r.mu.Unlock()

	project, err := r.source.GetProject(ctx, connectionID, key)
	if err != nil {
		r.logger.Warn("Project lookup failed, caching as not found", map[string]interface{}{
			"connection": connectionID,
			"projectKey": key,
			"error":      err.Error(),
		})
		project = nil
	}
	e.value = project
	close(e.ready)
	return project
}

// GetIndex returns the searchable project index for a connection, building
// it from the full catalog on a cache miss. A failed or empty fetch yields
// an empty index, never an error.
func (r *Resolver) GetIndex(ctx context.Context, connectionID string) *SearchIndex {
	r.mu.Lock()
	if e, ok := r.indexes[connectionID]; ok && fresh(e, r.now(), r.ttl) {
		r.mu.Unlock()
		<-e.ready
		return e.value
	}
	e := &entry[*SearchIndex]{ready: make(chan struct{}), insertedAt: r.now()}
	r.indexes[connectionID] = e
	r.mu.Unlock()

	index := NewSearchIndex()
	catalog, err := r.source.ListAllProjects(ctx, connectionID)
	if err != nil {
		r.logger.Warn("Project catalog fetch failed, caching empty index", map[string]interface{}{
			"connection": connectionID,
			"error":      err.Error(),
		})
	} else {
		for _, p := range catalog {
			index.Index(p)
		}
	}
	e.value = index
	close(e.ready)
	return index
}

// Invalidate drops the search index for one connection. The single-project
// cache is keyed by (connection, project) and cannot be shrunk per
// connection cheaply, so it is cleared entirely: correctness over precision.
func (r *Resolver) Invalidate(connectionID string) {
	r.mu.Lock()
	delete(r.indexes, connectionID)
	r.projects = make(map[projectKey]*entry[*serverapi.ServerProject])
	r.mu.Unlock()

	r.logger.Debug("Invalidated project caches", map[string]interface{}{
		"connection": connectionID,
	})
}

// RegisterEventHandlers invalidates caches when a connection changes or
// disappears, so stale lookups never outlive their connection's settings.
func (r *Resolver) RegisterEventHandlers(bus *events.Bus) {
	bus.Subscribe(events.TypeConnectionUpdated, func(e events.Event) {
		r.Invalidate(e.(events.ConnectionUpdated).ConnectionID)
	})
	bus.Subscribe(events.TypeConnectionRemoved, func(e events.Event) {
		r.Invalidate(e.(events.ConnectionRemoved).ConnectionID)
	})
}
