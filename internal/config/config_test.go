package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Suggestions.CacheTTL() != time.Hour {
		t.Errorf("default cache TTL = %v, want 1h", cfg.Suggestions.CacheTTL())
	}
	if cfg.Suggestions.FileLookupTimeout() != time.Minute {
		t.Errorf("default file lookup timeout = %v, want 1m", cfg.Suggestions.FileLookupTimeout())
	}
	if cfg.Suggestions.ShutdownTimeout() != time.Second {
		t.Errorf("default shutdown timeout = %v, want 1s", cfg.Suggestions.ShutdownTimeout())
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default log level = %q", cfg.Logging.Level)
	}
}

func TestLoadConfigJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "sonarbind.json", `{
		"connections": [
			{"id": "sq1", "kind": "sonarqube", "url": "https://sonar.example.com/", "token": "tok"},
			{"id": "sc1", "kind": "sonarcloud", "organization": "my-org"}
		],
		"scopes": [
			{"id": "ws", "name": "My Workspace", "root": "/work/ws", "bindable": true}
		],
		"suggestions": {"cacheTtlMinutes": 30}
	}`)

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(cfg.Connections) != 2 {
		t.Fatalf("connections = %d, want 2", len(cfg.Connections))
	}
	if cfg.Connections[0].Kind != "sonarqube" || cfg.Connections[0].URL == "" {
		t.Errorf("connection[0] = %+v", cfg.Connections[0])
	}
	if cfg.Connections[1].Organization != "my-org" {
		t.Errorf("connection[1] = %+v", cfg.Connections[1])
	}
	if len(cfg.Scopes) != 1 || !cfg.Scopes[0].Bindable {
		t.Errorf("scopes = %+v", cfg.Scopes)
	}
	if cfg.Suggestions.CacheTTL() != 30*time.Minute {
		t.Errorf("cache TTL = %v, want 30m", cfg.Suggestions.CacheTTL())
	}
	// Unset values keep defaults
	if cfg.Suggestions.QueueSize != 100 {
		t.Errorf("queue size = %d, want default 100", cfg.Suggestions.QueueSize)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "sonarbind.yaml", `
connections:
  - id: sc1
    kind: sonarcloud
    organization: acme
scopes:
  - id: ws
    name: Workspace
    root: /work
    bindable: true
    binding:
      suggestionsDisabled: true
`)

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(cfg.Connections) != 1 || cfg.Connections[0].Organization != "acme" {
		t.Errorf("connections = %+v", cfg.Connections)
	}
	if !cfg.Scopes[0].Binding.SuggestionsDisabled {
		t.Error("binding.suggestionsDisabled should be true")
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "sonarbind.json", `{"connections": [{"id": "x", "kind": "gitlab"}]}`)
		if _, err := LoadConfig(dir); err == nil {
			t.Fatal("expected error for unknown connection kind")
		}
	})

	t.Run("sonarqube without url", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "sonarbind.json", `{"connections": [{"id": "x", "kind": "sonarqube"}]}`)
		if _, err := LoadConfig(dir); err == nil {
			t.Fatal("expected error for sonarqube connection without url")
		}
	})

	t.Run("duplicate connection id", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "sonarbind.json", `{"connections": [
			{"id": "x", "kind": "sonarcloud"}, {"id": "x", "kind": "sonarcloud"}]}`)
		if _, err := LoadConfig(dir); err == nil {
			t.Fatal("expected error for duplicate connection id")
		}
	})
}
