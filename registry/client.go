// Package registry provides an HTTP client for upstream business
// registry sources.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/poiesic/regsearch/core"
	"github.com/poiesic/regsearch/query"
)

const (
	defaultTimeout    = 5 * time.Second
	maxResponseBytes  = 4 << 20
	defaultQueryParam = "q"
	defaultUserAgent  = "regsearch/1.0"
)

// Client queries one upstream registry over HTTP and adapts its answers
// to raw records. It implements query.Source.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

var _ query.Source = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithTimeout sets the per-request timeout.
// Default is 5s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("%w: %v", ErrInvalidTimeout, d)
		}
		c.httpClient.Timeout = d
		return nil
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return ErrClientRequired
		}
		c.httpClient = hc
		return nil
	}
}

// NewClient creates a registry client for the named upstream.
func NewClient(name, baseURL string, opts ...Option) (*Client, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if _, err := url.Parse(baseURL); err != nil || baseURL == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Name implements query.Source.
func (c *Client) Name() string { return c.name }

// upstreamRecord is the loose shape upstream registries answer with.
// Field aliases cover the variations seen across registries.
type upstreamRecord struct {
	Ident        string `json:"ident"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	LegalForm    string `json:"legal_form"`
	ActivityCode string `json:"activity_code"`
	Status       string `json:"status"`
}

// Search implements query.Source. It issues GET {baseURL}?q=term and
// maps the decoded body to raw records tagged with this source's name.
func (c *Client) Search(ctx context.Context, term string) ([]core.RegistryRecord, error) {
	reqURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	q := reqURL.Query()
	q.Set(defaultQueryParam, term)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s answered %d", ErrUpstream, c.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, c.name, err)
	}

	var raw []upstreamRecord
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadResponse, c.name, err)
	}

	records := make([]core.RegistryRecord, 0, len(raw))
	for _, u := range raw {
		ident := u.Ident
		if ident == "" {
			ident = u.ID
		}
		records = append(records, core.RegistryRecord{
			Ident:        ident,
			Name:         u.Name,
			Address:      u.Address,
			LegalForm:    u.LegalForm,
			ActivityCode: u.ActivityCode,
			Status:       u.Status,
			Source:       c.name,
		})
	}
	return records, nil
}
