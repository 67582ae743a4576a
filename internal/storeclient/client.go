// Package storeclient talks to the remote note store over HTTP.
package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/bucket/internal/apperr"
	"github.com/starford/bucket/internal/models"
)

// DefaultBaseURL is where the store listens when nothing else is configured.
const DefaultBaseURL = "http://localhost:9000"

// Client implements the remote store contract against the HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	timeout    time.Duration
	hasTimeout bool

	retryMin time.Duration
	retryMax time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a Bearer credential.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client. The client is copied,
// never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds every request except the event stream. Zero leaves
// requests unbounded. It applies regardless of its position relative to
// WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		c.hasTimeout = true
	}
}

// WithRetryDelay sets the first and the longest pause between event stream
// reconnects.
func WithRetryDelay(first, longest time.Duration) Option {
	return func(c *Client) {
		if first > 0 {
			c.retryMin = first
		}
		if longest >= c.retryMin {
			c.retryMax = longest
		}
	}
}

// New creates a client for the store at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryMin:   time.Second,
		retryMax:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	if c.hasTimeout {
		hc.Timeout = c.timeout
	}
	c.httpClient = &hc
	return c
}

type noteBody struct {
	Item string `json:"item"`
}

// FetchAll returns every note in store order.
func (c *Client) FetchAll(ctx context.Context) ([]models.Note, error) {
	var notes []models.Note
	if err := c.do(ctx, http.MethodGet, "/api/fetch", nil, &notes, http.StatusOK); err != nil {
		return nil, fmt.Errorf("storeclient: fetch: %w", err)
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, nil
}

// Create asks the store to add a note. The created note is not returned: the
// caller re-fetches to learn its id.
func (c *Client) Create(ctx context.Context, text string) error {
	if err := c.do(ctx, http.MethodPost, "/api/add", noteBody{Item: text}, nil, http.StatusCreated, http.StatusOK); err != nil {
		return fmt.Errorf("storeclient: create: %w", err)
	}
	return nil
}

// Update replaces the text of note id.
func (c *Client) Update(ctx context.Context, id, text string) error {
	path := "/api/edit/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPut, path, noteBody{Item: text}, nil, http.StatusOK, http.StatusNoContent); err != nil {
		return fmt.Errorf("storeclient: update %s: %w", id, err)
	}
	return nil
}

// Delete removes note id.
func (c *Client) Delete(ctx context.Context, id string) error {
	path := "/api/delete/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, http.StatusNoContent, http.StatusOK); err != nil {
		return fmt.Errorf("storeclient: delete %s: %w", id, err)
	}
	return nil
}

// do performs one request and decodes the response into out when non-nil.
// Transport failures wrap apperr.ErrNetwork; 404 wraps apperr.ErrNotFound and
// 400 wraps apperr.ErrRejected.
func (c *Client) do(ctx context.Context, method, path string, body, out any, okStatus ...int) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "bucket-client/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", apperr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	for _, s := range okStatus {
		if resp.StatusCode == s {
			if out == nil {
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}
	}
	return statusError(resp)
}

func statusError(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&errResp)
	msg := errResp.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", apperr.ErrRejected, msg)
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
}
