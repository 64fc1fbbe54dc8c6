package repository

import (
	"testing"

	"sonarbind/internal/events"
)

func TestNormalizeServerURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://sonar.example.com", "https://sonar.example.com"},
		{"https://sonar.example.com/", "https://sonar.example.com"},
		{"https://sonar.example.com//", "https://sonar.example.com"},
		{"  https://sonar.example.com/ ", "https://sonar.example.com"},
	}
	for _, c := range cases {
		if got := NormalizeServerURL(c.in); got != c.want {
			t.Errorf("NormalizeServerURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestConnectionRepositoryEvents(t *testing.T) {
	bus := events.NewBus()
	var seen []events.Type
	for _, et := range []events.Type{events.TypeConnectionAdded, events.TypeConnectionUpdated, events.TypeConnectionRemoved} {
		et := et
		bus.Subscribe(et, func(events.Event) { seen = append(seen, et) })
	}

	repo := NewConnectionRepository(bus)
	conn := ConnectionConfiguration{ID: "sq1", Kind: KindSonarQube, URL: "https://sonar.example.com/"}

	if err := repo.Add(conn); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got := repo.Get("sq1"); got == nil || got.URL != "https://sonar.example.com" {
		t.Errorf("Get(sq1) = %+v, want normalized URL", got)
	}

	conn.URL = "https://other.example.com"
	if err := repo.Update(conn); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	repo.Remove("sq1")
	if repo.Get("sq1") != nil {
		t.Error("connection should be gone after Remove")
	}

	want := []events.Type{events.TypeConnectionAdded, events.TypeConnectionUpdated, events.TypeConnectionRemoved}
	if len(seen) != len(want) {
		t.Fatalf("events seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("event[%d] = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestConnectionRepositoryRejectsUnknownKind(t *testing.T) {
	repo := NewConnectionRepository(events.NewBus())
	err := repo.Add(ConnectionConfiguration{ID: "x", Kind: "bitbucket"})
	if err == nil {
		t.Fatal("Add should reject an unknown connection kind")
	}
}

func TestConnectionRepositoryDuplicateAdd(t *testing.T) {
	repo := NewConnectionRepository(events.NewBus())
	c := ConnectionConfiguration{ID: "sq1", Kind: KindSonarQube, URL: "https://s"}
	if err := repo.Add(c); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := repo.Add(c); err == nil {
		t.Fatal("second Add with same id should fail")
	}
}

func TestConfigRepositoryScopesAndBindings(t *testing.T) {
	bus := events.NewBus()
	var addedScopes [][]string
	bus.Subscribe(events.TypeScopesAdded, func(e events.Event) {
		addedScopes = append(addedScopes, e.(events.ScopesAdded).ScopeIDs)
	})

	repo := NewConfigRepository(bus)
	repo.AddScopes(
		ScopeWithBinding{Scope: ConfigurationScope{ID: "a", Name: "Scope A", Bindable: true}},
		ScopeWithBinding{Scope: ConfigurationScope{ID: "b", Name: "Scope B"}},
	)

	if len(addedScopes) != 1 || len(addedScopes[0]) != 2 {
		t.Fatalf("ScopesAdded events = %v, want one event with two ids", addedScopes)
	}
	if s := repo.GetScope("a"); s == nil || !s.Bindable {
		t.Errorf("GetScope(a) = %+v", s)
	}
	if b := repo.GetBinding("a"); b == nil || b.IsSet() {
		t.Errorf("GetBinding(a) = %+v, want empty binding", b)
	}

	repo.RemoveScope("a")
	if repo.GetScope("a") != nil || repo.GetBinding("a") != nil {
		t.Error("scope a should be fully gone")
	}
}

func TestSetBindingPublishesPreviousAndNewFlags(t *testing.T) {
	bus := events.NewBus()
	var changes []events.BindingConfigChanged
	bus.Subscribe(events.TypeBindingConfigChanged, func(e events.Event) {
		changes = append(changes, e.(events.BindingConfigChanged))
	})

	repo := NewConfigRepository(bus)
	repo.AddScopes(ScopeWithBinding{
		Scope:   ConfigurationScope{ID: "a", Name: "Scope A", Bindable: true},
		Binding: BindingConfiguration{SuggestionsDisabled: true},
	})

	repo.SetBinding("a", BindingConfiguration{SuggestionsDisabled: false})

	if len(changes) != 1 {
		t.Fatalf("changes = %v", changes)
	}
	if !changes[0].PreviousSuggestionsDisabled || changes[0].NewSuggestionsDisabled {
		t.Errorf("flags = %+v, want previous=true new=false", changes[0])
	}
}
