// Package zapier provides an HTTP client for the Zapier AI Actions catalog.
// It implements the catalog port. When no API key is configured the client
// serves the built-in catalog so the pipeline works without a Zapier account.
package zapier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Strob0t/AgentForge/internal/domain"
	"github.com/Strob0t/AgentForge/internal/domain/action"
	"github.com/Strob0t/AgentForge/internal/resilience"
)

// Client fetches exposed actions from the Zapier catalog API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a catalog client. An empty apiKey switches the client
// to the built-in catalog.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type exposedAction struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Params      map[string]string `json:"params"`
}

type exposedResponse struct {
	Results []exposedAction `json:"results"`
}

// Actions returns the catalog. Remote failures come back wrapped in
// domain.ErrUnavailable so the selector can refuse to proceed.
func (c *Client) Actions(ctx context.Context) ([]action.CatalogEntry, error) {
	if c.apiKey == "" {
		return BuiltinCatalog(), nil
	}

	data, err := c.doRequest(ctx, "/api/v1/exposed/")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	var parsed exposedResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: unmarshal catalog: %v", domain.ErrUnavailable, err)
	}

	entries := make([]action.CatalogEntry, 0, len(parsed.Results))
	for _, a := range parsed.Results {
		service, name := splitDescription(a.Description)
		entries = append(entries, action.CatalogEntry{
			ID:          a.ID,
			Service:     service,
			Name:        name,
			Description: a.Description,
			ArgSchema:   a.Params,
		})
	}
	return entries, nil
}

// splitDescription breaks "Slack: Send Channel Message" into service and
// action name. Descriptions without the separator keep the whole text as
// the name with an empty service.
func splitDescription(desc string) (service, name string) {
	if i := strings.Index(desc, ": "); i > 0 {
		return desc[:i], desc[i+2:]
	}
	return "", desc
}

func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	var result []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("zapier API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
