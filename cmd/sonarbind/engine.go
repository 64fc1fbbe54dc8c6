package main

import (
	"sonarbind/internal/binding"
	"sonarbind/internal/config"
	"sonarbind/internal/events"
	"sonarbind/internal/logging"
	"sonarbind/internal/projects"
	"sonarbind/internal/repository"
	"sonarbind/internal/serverapi"
	"sonarbind/internal/workspace"
)

// engine bundles the wired components behind the CLI commands.
type engine struct {
	cfg      *config.Config
	logger   *logging.Logger
	bus      *events.Bus
	conns    *repository.ConnectionRepository
	configs  *repository.ConfigRepository
	files    *workspace.Service
	provider *binding.SuggestionProvider
}

// buildEngine loads the configuration, wires every component onto one event
// bus and populates the repositories from the config file. Connections are
// added before scopes so scope-added computations see them.
func buildEngine(listener binding.SuggestionListener) (*engine, error) {
	cfg, err := config.LoadConfig(configDirFlag)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	logger := logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(level),
	})

	bus := events.NewBus()
	conns := repository.NewConnectionRepository(bus)
	configs := repository.NewConfigRepository(bus)
	files := workspace.NewService(logger)

	manager := serverapi.NewManager(conns, logger)
	manager.RegisterEventHandlers(bus)

	resolver := projects.NewResolver(manager, logger, cfg.Suggestions.CacheTTL())
	resolver.RegisterEventHandlers(bus)

	extractor := binding.NewClueExtractor(files, logger, cfg.Suggestions.FileLookupTimeout())
	matcher := binding.NewConnectionMatcher(conns)

	provider := binding.NewSuggestionProvider(configs, conns, extractor, matcher, resolver,
		listener, logger, binding.ProviderOptions{
			QueueSize:       cfg.Suggestions.QueueSize,
			ShutdownTimeout: cfg.Suggestions.ShutdownTimeout(),
		})
	provider.RegisterEventHandlers(bus)
	provider.Start()

	e := &engine{
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
		conns:    conns,
		configs:  configs,
		files:    files,
		provider: provider,
	}
	if err := e.populate(); err != nil {
		provider.Shutdown()
		return nil, err
	}
	return e, nil
}

func (e *engine) populate() error {
	for _, c := range e.cfg.Connections {
		err := e.conns.Add(repository.ConnectionConfiguration{
			ID:           c.ID,
			Kind:         repository.ConnectionKind(c.Kind),
			URL:          c.URL,
			Organization: c.Organization,
			Token:        c.Token,
		})
		if err != nil {
			return err
		}
	}

	scopes := make([]repository.ScopeWithBinding, 0, len(e.cfg.Scopes))
	for _, s := range e.cfg.Scopes {
		if s.Root != "" {
			e.files.RegisterScope(s.ID, s.Root)
		}
		scopes = append(scopes, repository.ScopeWithBinding{
			Scope: repository.ConfigurationScope{
				ID:       s.ID,
				ParentID: s.ParentID,
				Name:     s.Name,
				Bindable: s.Bindable,
			},
			Binding: repository.BindingConfiguration{
				ConnectionID:        s.Binding.ConnectionID,
				ProjectKey:          s.Binding.ProjectKey,
				SuggestionsDisabled: s.Binding.SuggestionsDisabled,
			},
		})
	}
	e.configs.AddScopes(scopes...)
	return nil
}

func (e *engine) shutdown() {
	e.provider.Shutdown()
}
