// Package serverapi implements the HTTP client for the project endpoints of
// SonarQube and SonarCloud servers.
package serverapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sonarbind/internal/logging"
	"sonarbind/internal/repository"
)

// SonarCloudURL is the base URL of the hosted service.
const SonarCloudURL = "https://sonarcloud.io"

const (
	defaultTimeout = 30 * time.Second
	maxBodySize    = 8 << 20
	pageSize       = 500
)

// ServerProject is the remote descriptor of a project.
type ServerProject struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Client talks to one server connection. Requests are made once; retry
// policy belongs to the caller.
type Client struct {
	baseURL      string
	organization string
	token        string
	httpClient   *http.Client
	logger       *logging.Logger
}

// NewClient builds a client for the given connection.
// An unrecognized connection kind is a programmer error: the repository
// validates kinds on insert, so this cannot happen on a sane wiring.
func NewClient(conn repository.ConnectionConfiguration, logger *logging.Logger) *Client {
	var baseURL string
	switch conn.Kind {
	case repository.KindSonarQube:
		baseURL = conn.URL
	case repository.KindSonarCloud:
		baseURL = SonarCloudURL
	default:
		panic(fmt.Sprintf("unknown connection kind %q", conn.Kind))
	}

	return &Client{
		baseURL:      baseURL,
		organization: conn.Organization,
		token:        conn.Token,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		logger:       logger,
	}
}

// SetBaseURL overrides the server address. Used by tests to point the
// client at a local stub.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = repository.NormalizeServerURL(u)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "sonarbind/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(data)}
	}
	return data, nil
}

// GetProject fetches a single project by key. A missing project yields
// (nil, nil); any other failure is returned as an error.
func (c *Client) GetProject(ctx context.Context, projectKey string) (*ServerProject, error) {
	query := url.Values{}
	query.Set("component", projectKey)

	body, err := c.get(ctx, "/api/components/show", query)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.IsNotFound() {
			return nil, nil
		}
		return nil, err
	}

	var resp struct {
		Component ServerProject `json:"component"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse project response: %w", err)
	}
	if resp.Component.Key == "" {
		return nil, nil
	}
	return &resp.Component, nil
}

// ListAllProjects fetches the full project catalog, following pagination
// until the server reports no more pages.
func (c *Client) ListAllProjects(ctx context.Context) ([]ServerProject, error) {
	var all []ServerProject

	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("p", strconv.Itoa(page))
		query.Set("ps", strconv.Itoa(pageSize))
		if c.organization != "" {
			query.Set("organization", c.organization)
		}

		body, err := c.get(ctx, "/api/components/search_projects", query)
		if err != nil {
			return nil, err
		}

		var resp struct {
			Paging struct {
				PageIndex int `json:"pageIndex"`
				PageSize  int `json:"pageSize"`
				Total     int `json:"total"`
			} `json:"paging"`
			Components []ServerProject `json:"components"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse project search response: %w", err)
		}

		all = append(all, resp.Components...)
		if len(resp.Components) == 0 || len(all) >= resp.Paging.Total {
			break
		}
	}

	c.logger.Debug("Fetched project catalog", map[string]interface{}{
		"count": len(all),
	})
	return all, nil
}
