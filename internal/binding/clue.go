// Package binding implements the binding resolution engine: it extracts
// binding clues from workspace scanner-configuration files, matches them
// against configured connections and computes binding suggestions.
package binding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sonarbind/internal/logging"
	"sonarbind/internal/serverapi"
	"sonarbind/internal/workspace"
)

const (
	// ScannerPropertiesFilename is the generic scanner configuration file.
	ScannerPropertiesFilename = "sonar-project.properties"
	// AutoscanPropertiesFilename is the cloud autoscan configuration file.
	AutoscanPropertiesFilename = ".sonarcloud.properties"

	propProjectKey   = "sonar.projectKey"
	propOrganization = "sonar.organization"
	propHostURL      = "sonar.host.url"
)

// ClueFilenames lists every filename the extractor looks for.
var ClueFilenames = []string{ScannerPropertiesFilename, AutoscanPropertiesFilename}

// Clue is a typed hint about which server and project a scope belongs to.
// Exactly one of the three concrete types below is produced per file.
type Clue interface {
	// ProjectKey returns the hinted project key, or "" when the file
	// carried none.
	ProjectKey() string
}

// UnknownClue carries a project key with no signal about the server kind.
type UnknownClue struct {
	Key string
}

// ProjectKey implements Clue.
func (c UnknownClue) ProjectKey() string { return c.Key }

// SonarQubeClue points at a self-hosted server by URL.
type SonarQubeClue struct {
	Key       string
	ServerURL string
}

// ProjectKey implements Clue.
func (c SonarQubeClue) ProjectKey() string { return c.Key }

// SonarCloudClue points at the hosted service, optionally at one organization.
type SonarCloudClue struct {
	Key          string
	Organization string
}

// ProjectKey implements Clue.
func (c SonarCloudClue) ProjectKey() string { return c.Key }

// FileFinder is the workspace collaborator the extractor queries.
type FileFinder interface {
	FindFilesByName(ctx context.Context, scopeID string, names []string) ([]workspace.FoundFile, error)
}

// ClueExtractor parses scanner configuration files into clues.
type ClueExtractor struct {
	files   FileFinder
	logger  *logging.Logger
	timeout time.Duration
}

// NewClueExtractor creates an extractor; timeout <= 0 defaults to one minute.
func NewClueExtractor(files FileFinder, logger *logging.Logger, timeout time.Duration) *ClueExtractor {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &ClueExtractor{
		files:   files,
		logger:  logger,
		timeout: timeout,
	}
}

// ExtractClues collects the binding clues of one scope. Lookup failures and
// timeouts are logged and yield no clues: suggestion computation degrades,
// it never fails.
func (e *ClueExtractor) ExtractClues(ctx context.Context, scopeID string) []Clue {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	files, err := e.files.FindFilesByName(ctx, scopeID, ClueFilenames)
	if err != nil {
		e.logger.Warn("Scanner configuration lookup failed", map[string]interface{}{
			"scope": scopeID,
			"error": err.Error(),
		})
		return nil
	}

	var clues []Clue
	for _, f := range files {
		props, err := parseProperties(f.Content)
		if err != nil {
			e.logger.Error("Unable to parse scanner configuration file", map[string]interface{}{
				"path":  f.Path,
				"error": err.Error(),
			})
			continue
		}
		if clue := classify(f.Name, props); clue != nil {
			clues = append(clues, clue)
		}
	}

	e.logger.Debug("Collected binding clues", map[string]interface{}{
		"scope": scopeID,
		"count": len(clues),
	})
	return clues
}

type connectionProperties struct {
	projectKey   string
	organization string
	serverURL    string
}

// classify turns one file's properties into a clue; first rule wins.
func classify(filename string, props map[string]string) Clue {
	p := connectionProperties{
		projectKey:   props[propProjectKey],
		organization: props[propOrganization],
		serverURL:    props[propHostURL],
	}

	if filename == AutoscanPropertiesFilename {
		return SonarCloudClue{Key: p.projectKey, Organization: p.organization}
	}
	if p.organization != "" {
		return SonarCloudClue{Key: p.projectKey, Organization: p.organization}
	}
	if p.serverURL != "" {
		if strings.TrimRight(p.serverURL, "/") == serverapi.SonarCloudURL {
			return SonarCloudClue{Key: p.projectKey}
		}
		return SonarQubeClue{Key: p.projectKey, ServerURL: p.serverURL}
	}
	if p.projectKey != "" {
		return UnknownClue{Key: p.projectKey}
	}
	return nil
}

// parseProperties reads Java-properties-style text: key=value or key:value
// pairs, # and ! comments, whitespace-trimmed keys and values. Blank values
// are treated as absent.
func parseProperties(content string) (map[string]string, error) {
	props := make(map[string]string)
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}

		sep := strings.IndexAny(line, "=:")
		if sep < 0 {
			return nil, fmt.Errorf("line %d: no key separator in %q", i+1, line)
		}
		key := strings.TrimSpace(line[:sep])
		value := strings.TrimSpace(line[sep+1:])
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", i+1)
		}
		if value == "" {
			continue
		}
		props[key] = value
	}
	return props, nil
}
