// Package workspace provides access to the files of registered
// configuration scopes and watches them for scanner-config changes.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sonarbind/internal/logging"
)

// maxFileSize caps how much of a matched file is read. Scanner
// configuration files are tiny; anything larger is not one.
const maxFileSize = 1 << 20

// Directories never containing scanner configuration worth scanning.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".idea":        true,
	"target":       true,
	"build":        true,
}

// FoundFile is one file matched by FindFilesByName.
type FoundFile struct {
	Path    string
	Name    string
	Content string
}

// Service resolves file queries against the registered scope roots.
type Service struct {
	mu     sync.RWMutex
	roots  map[string]string
	logger *logging.Logger
}

// NewService creates an empty scope registry.
func NewService(logger *logging.Logger) *Service {
	return &Service{
		roots:  make(map[string]string),
		logger: logger,
	}
}

// RegisterScope associates a scope id with a workspace root directory.
func (s *Service) RegisterScope(scopeID, root string) {
	s.mu.Lock()
	s.roots[scopeID] = root
	s.mu.Unlock()
}

// UnregisterScope forgets a scope's root.
func (s *Service) UnregisterScope(scopeID string) {
	s.mu.Lock()
	delete(s.roots, scopeID)
	s.mu.Unlock()
}

// ScopeRoot returns the registered root for a scope, or "" if unknown.
func (s *Service) ScopeRoot(scopeID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roots[scopeID]
}

// ScopesForPath returns the ids of every scope whose root contains the path.
func (s *Service) ScopesForPath(path string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, root := range s.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// FindFilesByName walks the scope's root and returns every file whose base
// name is in names, with its content. The walk honors ctx cancellation so
// callers can impose a timeout.
func (s *Service) FindFilesByName(ctx context.Context, scopeID string, names []string) ([]FoundFile, error) {
	root := s.ScopeRoot(scopeID)
	if root == "" {
		return nil, fmt.Errorf("no workspace root registered for scope %q", scopeID)
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var found []FoundFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.logger.Debug("Skipping unreadable path", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !wanted[d.Name()] {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > maxFileSize {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			s.logger.Debug("Skipping unreadable file", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			return nil
		}
		found = append(found, FoundFile{
			Path:    path,
			Name:    d.Name(),
			Content: string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
