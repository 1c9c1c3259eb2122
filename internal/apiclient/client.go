package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roomwatch/roomwatch/internal/model"
)

const maxBodyBytes = 8 * 1024 * 1024

var (
	_ model.ClassroomAPI      = (*Client)(nil)
	_ model.LastUpdatedReader = (*Client)(nil)
)

// Client implements model.ClassroomAPI over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New returns a client rooted at baseURL, e.g. "http://127.0.0.1:8000".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("apiclient: unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// OpenClassrooms fetches the current building snapshot.
func (c *Client) OpenClassrooms(ctx context.Context) (model.OpenClassrooms, error) {
	var out model.OpenClassrooms
	err := c.call(ctx, http.MethodGet, "/api/open-classrooms", &out)
	return out, err
}

// CooldownStatus fetches the server's view of the refresh cooldown.
func (c *Client) CooldownStatus(ctx context.Context) (model.CooldownStatus, error) {
	var out model.CooldownStatus
	err := c.call(ctx, http.MethodGet, "/api/cooldown-status", &out)
	return out, err
}

// Refresh asks the server to rebuild its data. A rejection during cooldown
// comes back as an *APIError whose Message carries the remaining wait.
func (c *Client) Refresh(ctx context.Context) (model.RefreshResult, error) {
	var out model.RefreshResult
	err := c.call(ctx, http.MethodPost, "/api/refresh", &out)
	return out, err
}

// LastUpdated fetches the timestamp of the last successful scrape.
func (c *Client) LastUpdated(ctx context.Context) (model.LastUpdated, error) {
	var out model.LastUpdated
	err := c.call(ctx, http.MethodGet, "/api/last-updated", &out)
	return out, err
}

// call performs a request and unmarshals a 2xx JSON body into dest.
func (c *Client) call(ctx context.Context, method, path string, dest interface{}) error {
	endpoint := c.baseURL.JoinPath(path)

	var body io.Reader
	if method == http.MethodPost {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("apiclient: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("apiclient: read %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}

	if dest != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("apiclient: unmarshal %s: %w", path, err)
		}
	}
	return nil
}
