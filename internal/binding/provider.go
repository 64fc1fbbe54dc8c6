package binding

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"sonarbind/internal/events"
	"sonarbind/internal/logging"
	"sonarbind/internal/projects"
	"sonarbind/internal/repository"
)

// Suggestion is a candidate binding proposed for a scope.
type Suggestion struct {
	ConnectionID string `json:"connectionId"`
	ProjectKey   string `json:"projectKey"`
	ProjectName  string `json:"projectName"`
}

// SuggestionListener receives event-triggered suggestion batches. Every
// eligible scope of the computed unit is present in the map, including
// those with zero suggestions.
type SuggestionListener func(suggestionsByScope map[string][]Suggestion)

// ProviderOptions tunes the suggestion provider.
type ProviderOptions struct {
	QueueSize       int
	ShutdownTimeout time.Duration
}

// computationUnit is one queued (scopes × connections) work item. A non-nil
// reply marks a pull request; its result is sent there instead of going to
// the listener.
type computationUnit struct {
	id            string
	scopeIDs      []string
	connectionIDs []string
	reply         chan map[string][]Suggestion
}

// SuggestionProvider computes binding suggestions in reaction to
// configuration and connection changes. All computation runs on a single
// worker goroutine, so units never overlap and submission order is
// preserved across the push and pull entry points.
type SuggestionProvider struct {
	configs     *repository.ConfigRepository
	connections *repository.ConnectionRepository
	extractor   *ClueExtractor
	matcher     *ConnectionMatcher
	resolver    *projects.Resolver
	listener    SuggestionListener
	logger      *logging.Logger

	enabled atomic.Bool
	closing atomic.Bool

	queue   chan computationUnit
	stop    chan struct{}
	stopped chan struct{}
	wg      sync.WaitGroup

	shutdownTimeout time.Duration
	startOnce       sync.Once
	stopOnce        sync.Once
}

// NewSuggestionProvider wires the provider. The listener may be nil when
// only the pull entry point is used.
func NewSuggestionProvider(
	configs *repository.ConfigRepository,
	connections *repository.ConnectionRepository,
	extractor *ClueExtractor,
	matcher *ConnectionMatcher,
	resolver *projects.Resolver,
	listener SuggestionListener,
	logger *logging.Logger,
	opts ProviderOptions,
) *SuggestionProvider {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = time.Second
	}

	p := &SuggestionProvider{
		configs:         configs,
		connections:     connections,
		extractor:       extractor,
		matcher:         matcher,
		resolver:        resolver,
		listener:        listener,
		logger:          logger,
		queue:           make(chan computationUnit, opts.QueueSize),
		stop:            make(chan struct{}),
		stopped:         make(chan struct{}),
		shutdownTimeout: opts.ShutdownTimeout,
	}
	p.enabled.Store(true)
	return p
}

// Start launches the worker goroutine.
func (p *SuggestionProvider) Start() {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go p.worker()
	})
}

// Enable allows queued units to compute and push again.
func (p *SuggestionProvider) Enable() {
	p.enabled.Store(true)
}

// Disable stops event-triggered units from computing. Queued units still
// run but produce no push; pull requests are unaffected.
func (p *SuggestionProvider) Disable() {
	p.enabled.Store(false)
}

// Shutdown stops accepting new work and waits briefly for the current unit
// to finish. The worker goroutine never outlives the grace period's
// in-flight unit.
func (p *SuggestionProvider) Shutdown() {
	p.stopOnce.Do(func() {
		p.closing.Store(true)
		close(p.stop)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(p.shutdownTimeout):
			p.logger.Warn("Unable to stop the suggestion worker in a timely manner", nil)
		}
		close(p.stopped)
	})
}

// RegisterEventHandlers subscribes the provider to the configuration and
// connection change events that trigger suggestion computation.
func (p *SuggestionProvider) RegisterEventHandlers(bus *events.Bus) {
	bus.Subscribe(events.TypeBindingConfigChanged, func(e events.Event) {
		ev := e.(events.BindingConfigChanged)
		// Only react when suggestions were switched back on.
		if ev.PreviousSuggestionsDisabled && !ev.NewSuggestionsDisabled {
			p.SuggestForScopes(ev.ScopeID)
		}
	})

	bus.Subscribe(events.TypeScopesAdded, func(e events.Event) {
		p.SuggestForScopes(e.(events.ScopesAdded).ScopeIDs...)
	})

	bus.Subscribe(events.TypeClueFilesChanged, func(e events.Event) {
		p.SuggestForScopes(e.(events.ClueFilesChanged).ScopeIDs...)
	})

	bus.Subscribe(events.TypeConnectionAdded, func(e events.Event) {
		connectionID := e.(events.ConnectionAdded).ConnectionID
		// Double check the connection has not been removed in the meantime.
		if p.connections.Get(connectionID) == nil {
			p.logger.Debug("Added connection is already gone", map[string]interface{}{
				"connection": connectionID,
			})
			return
		}
		scopeIDs := p.configs.AllScopeIDs()
		if len(scopeIDs) == 0 {
			return
		}
		p.logger.Debug("Binding suggestion computation queued for connection", map[string]interface{}{
			"connection": connectionID,
		})
		p.enqueue(computationUnit{
			id:            uuid.New().String(),
			scopeIDs:      scopeIDs,
			connectionIDs: []string{connectionID},
		})
	})
}

// SuggestForScopes queues a suggestion computation for the given scopes
// against all currently configured connections.
func (p *SuggestionProvider) SuggestForScopes(scopeIDs ...string) {
	if len(scopeIDs) == 0 {
		return
	}
	connectionIDs := p.connections.AllIDs()
	if len(connectionIDs) == 0 {
		p.logger.Debug("No connections configured, skipping binding suggestions", nil)
		return
	}
	p.logger.Debug("Binding suggestion computation queued for scopes", map[string]interface{}{
		"scopes": scopeIDs,
	})
	p.enqueue(computationUnit{
		id:            uuid.New().String(),
		scopeIDs:      scopeIDs,
		connectionIDs: connectionIDs,
	})
}

// GetSuggestions computes suggestions for one scope against one connection.
// The request runs on the shared worker, so it cannot race a concurrent
// event-triggered computation; the caller blocks until its unit completes.
func (p *SuggestionProvider) GetSuggestions(ctx context.Context, scopeID, connectionID string) ([]Suggestion, error) {
	result, err := p.Compute(ctx, []string{scopeID}, []string{connectionID})
	if err != nil {
		return nil, err
	}
	return result[scopeID], nil
}

// Compute is the generalized pull entry point: suggestions for the given
// scopes against the given connections, computed on the shared worker.
func (p *SuggestionProvider) Compute(ctx context.Context, scopeIDs, connectionIDs []string) (map[string][]Suggestion, error) {
	reply := make(chan map[string][]Suggestion, 1)
	queued := p.enqueue(computationUnit{
		id:            uuid.New().String(),
		scopeIDs:      scopeIDs,
		connectionIDs: connectionIDs,
		reply:         reply,
	})
	if !queued {
		return nil, fmt.Errorf("suggestion worker is not accepting requests")
	}

	select {
	case result := <-reply:
		return result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.stopped:
		return nil, fmt.Errorf("suggestion worker stopped")
	}
}

func (p *SuggestionProvider) enqueue(u computationUnit) bool {
	if p.closing.Load() {
		p.logger.Debug("Shutting down, dropping computation unit", map[string]interface{}{
			"unit": u.id,
		})
		return false
	}
	select {
	case p.queue <- u:
		return true
	default:
		p.logger.Warn("Suggestion queue full, dropping computation unit", map[string]interface{}{
			"unit": u.id,
		})
		return false
	}
}

func (p *SuggestionProvider) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stop:
			return
		default:
		}

		select {
		case u := <-p.queue:
			p.processUnit(u)
		case <-p.stop:
			return
		}
	}
}

func (p *SuggestionProvider) processUnit(u computationUnit) {
	log := p.logger.With(map[string]interface{}{"unit": u.id})

	if u.reply != nil {
		u.reply <- p.computeSuggestions(u.scopeIDs, u.connectionIDs, log)
		return
	}

	if !p.enabled.Load() {
		log.Debug("Skipping binding suggestion computation as it is disabled", nil)
		return
	}

	result := p.computeSuggestions(u.scopeIDs, u.connectionIDs, log)
	if len(result) > 0 && p.listener != nil {
		p.listener(result)
	}
}

func (p *SuggestionProvider) computeSuggestions(scopeIDs, connectionIDs []string, log *logging.Logger) map[string][]Suggestion {
	result := make(map[string][]Suggestion)
	for _, scopeID := range scopeIDs {
		if !p.isScopeEligible(scopeID, log) {
			continue
		}
		suggestions := p.suggestForEligibleScope(scopeID, connectionIDs, log)
		log.Debug("Computed suggestions for scope", map[string]interface{}{
			"scope": scopeID,
			"count": len(suggestions),
		})
		result[scopeID] = suggestions
	}
	return result
}

func (p *SuggestionProvider) isScopeEligible(scopeID string, log *logging.Logger) bool {
	scope := p.configs.GetScope(scopeID)
	binding := p.configs.GetBinding(scopeID)
	if scope == nil || binding == nil {
		// Scope removed between event and processing.
		log.Debug("Configuration scope is gone", map[string]interface{}{"scope": scopeID})
		return false
	}
	if !scope.Bindable {
		log.Debug("Configuration scope is not bindable", map[string]interface{}{"scope": scopeID})
		return false
	}
	if binding.IsSet() && p.connections.Get(binding.ConnectionID) != nil {
		log.Debug("Configuration scope is already bound", map[string]interface{}{"scope": scopeID})
		return false
	}
	if binding.SuggestionsDisabled {
		log.Debug("Configuration scope has binding suggestions disabled", map[string]interface{}{"scope": scopeID})
		return false
	}
	return true
}

type clueWithConnections struct {
	clue          Clue
	connectionIDs []string
}

func (p *SuggestionProvider) suggestForEligibleScope(scopeID string, connectionIDs []string, log *logging.Logger) []Suggestion {
	ctx := context.Background()

	var pairs []clueWithConnections
	for _, clue := range p.extractor.ExtractClues(ctx, scopeID) {
		matched := p.matcher.MatchingConnections(clue, connectionIDs)
		if len(matched) > 0 {
			pairs = append(pairs, clueWithConnections{clue: clue, connectionIDs: matched})
		}
	}

	var suggestions []Suggestion
	for _, pair := range pairs {
		key := pair.clue.ProjectKey()
		if key == "" {
			continue
		}
		for _, connectionID := range pair.connectionIDs {
			if project := p.resolver.GetProject(ctx, connectionID, key); project != nil {
				suggestions = append(suggestions, Suggestion{
					ConnectionID: connectionID,
					ProjectKey:   key,
					ProjectName:  project.Name,
				})
			}
		}
	}

	if len(suggestions) > 0 {
		return suggestions
	}

	scope := p.configs.GetScope(scopeID)
	if scope == nil || strings.TrimSpace(scope.Name) == "" {
		return suggestions
	}

	searchedClueConnections := false
	for _, pair := range pairs {
		if pair.clue.ProjectKey() != "" {
			continue
		}
		searchedClueConnections = true
		suggestions = p.searchConnections(ctx, scope.Name, pair.connectionIDs, suggestions, log)
	}
	if !searchedClueConnections {
		sorted := append([]string(nil), connectionIDs...)
		sort.Strings(sorted)
		suggestions = p.searchConnections(ctx, scope.Name, sorted, suggestions, log)
	}
	return suggestions
}

func (p *SuggestionProvider) searchConnections(ctx context.Context, scopeName string, connectionIDs []string, suggestions []Suggestion, log *logging.Logger) []Suggestion {
	for _, connectionID := range connectionIDs {
		suggestions = p.searchConnection(ctx, scopeName, connectionID, suggestions, log)
	}
	return suggestions
}

// searchConnection adds every top-score match of the connection's project
// index: walking the descending results, all ties for the running maximum
// are kept and the first strictly lower score stops the walk.
func (p *SuggestionProvider) searchConnection(ctx context.Context, scopeName, connectionID string, suggestions []Suggestion, log *logging.Logger) []Suggestion {
	log.Debug("Searching for a good match", map[string]interface{}{
		"name":       scopeName,
		"connection": connectionID,
	})

	results := p.resolver.GetIndex(ctx, connectionID).Search(scopeName)
	if len(results) == 0 {
		return suggestions
	}

	bestScore := math.Inf(-1)
	for _, r := range results {
		if r.Score < bestScore {
			break
		}
		bestScore = r.Score
		suggestions = append(suggestions, Suggestion{
			ConnectionID: connectionID,
			ProjectKey:   r.Project.Key,
			ProjectName:  r.Project.Name,
		})
	}
	log.Debug("Best score", map[string]interface{}{
		"score":      bestScore,
		"connection": connectionID,
	})
	return suggestions
}
