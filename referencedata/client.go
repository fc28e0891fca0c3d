// Package referencedata is the HTTP client of the reference data service,
// the owner of canonical user profiles and rights.
package referencedata

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

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	auth "github.com/goliatone/go-logistics-auth"
)

// DefaultTimeout is used when no http client is provided
const DefaultTimeout = 10 * time.Second

// TokenSource returns the bearer token sent to the reference data service
type TokenSource func(ctx context.Context) (string, error)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the http client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the request timeout of the default http client
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithTokenSource authorizes every request with a bearer token
func WithTokenSource(source TokenSource) Option {
	return func(c *Client) {
		c.tokens = source
	}
}

// WithLogger sets the logger
func WithLogger(logger auth.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to the reference data service:
//
//	GET  /api/users/{id}
//	POST /api/users/search              {"email": "..."}
//	GET  /api/users/{id}/hasRight?rightName=...
//	GET  /api/rights/search?name=...
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     auth.Logger
}

var (
	_ auth.ReferenceUserLookup = (*Client)(nil)
	_ auth.RightChecker        = (*Client)(nil)
	_ auth.RightFinder         = (*Client)(nil)
)

// New returns a client for the service at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     nopLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// FindByID returns the user profile, or nil when the service has none
func (c *Client) FindByID(ctx context.Context, id uuid.UUID) (*auth.UserMainDetails, error) {
	user := &auth.UserMainDetails{}
	found, err := c.do(ctx, http.MethodGet, "/api/users/"+id.String(), nil, user)
	if err != nil || !found {
		return nil, err
	}
	return user, nil
}

type searchRequest struct {
	Email string `json:"email"`
}

type searchPage struct {
	Content []auth.UserMainDetails `json:"content"`
}

// FindByEmail returns the user owning email, or nil
func (c *Client) FindByEmail(ctx context.Context, email string) (*auth.UserMainDetails, error) {
	page := &searchPage{}
	found, err := c.do(ctx, http.MethodPost, "/api/users/search", searchRequest{Email: email}, page)
	if err != nil || !found {
		return nil, err
	}

	for i := range page.Content {
		if strings.EqualFold(page.Content[i].Email, email) {
			return &page.Content[i], nil
		}
	}

	return nil, nil
}

type rightResult struct {
	Result bool `json:"result"`
}

// HasRight asks whether userID holds right. Unknown users hold no rights.
func (c *Client) HasRight(ctx context.Context, userID uuid.UUID, right auth.Right) (bool, error) {
	path := fmt.Sprintf("/api/users/%s/hasRight?%s", userID, url.Values{"rightName": {right}}.Encode())

	result := &rightResult{}
	found, err := c.do(ctx, http.MethodGet, path, nil, result)
	if err != nil || !found {
		return false, err
	}

	return result.Result, nil
}

// FindRight returns the right named name, or nil
func (c *Client) FindRight(ctx context.Context, name auth.Right) (*auth.RightDetails, error) {
	path := "/api/rights/search?" + url.Values{"name": {name}}.Encode()

	var rights []auth.RightDetails
	found, err := c.do(ctx, http.MethodGet, path, nil, &rights)
	if err != nil || !found {
		return nil, err
	}

	for i := range rights {
		if rights[i].Name == name {
			return &rights[i], nil
		}
	}

	return nil, nil
}

// do sends the request and decodes a 2xx body into out. A 404 reports
// found false without error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (bool, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode reference data request")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build reference data request")
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens(ctx)
		if err != nil {
			return false, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to obtain reference data token")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryExternal, "reference data request failed").
			WithMetadata(map[string]any{"method": method, "path": path})
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn("reference data returned unexpected status", "method", method, "path", path, "status", resp.StatusCode)
		return false, goerrors.New("reference data returned unexpected status", goerrors.CategoryExternal).
			WithCode(http.StatusBadGateway).
			WithMetadata(map[string]any{
				"method": method,
				"path":   path,
				"status": resp.StatusCode,
				"body":   string(msg),
			})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to decode reference data response")
	}

	return true, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
