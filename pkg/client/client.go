package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the default base URL for the HealthyDuck API.
const DefaultBaseURL = "http://localhost:3000"

// DefaultTimeout bounds each request when no custom HTTP client is supplied.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is sent with every request unless overridden.
const DefaultUserAgent = "HealthyDuck-Go-Client/1.0"

const apiPrefix = "/api/fitness/v1/users/"

// Client is a HealthyDuck fitness API client.
//
// A Client holds one HTTP connection pool and one bearer token for its whole
// lifetime. It is meant to be owned by a single caller.
type Client struct {
	baseURL     string
	accessToken string
	userAgent   string
	httpClient  *http.Client
	timeout     time.Duration
	metrics     *Metrics
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithAccessToken sets the bearer token sent in the Authorization header.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.accessToken = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
// It has no effect when combined with WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMetrics records request counts and latencies into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a new HealthyDuck API client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// BaseURL returns the API base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// userPath builds an API path below /users/{userID}. Segments are path-escaped.
func userPath(userID string, segments ...string) string {
	var b strings.Builder
	b.WriteString(apiPrefix)
	b.WriteString(url.PathEscape(userID))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// newRequest builds an authenticated request for path below the base URL.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, &APIError{Method: method, Path: path, Message: "parsing URL", Err: err}
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &APIError{Method: method, Path: path, Message: "encoding request body", Err: err}
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, &APIError{Method: method, Path: path, Message: "creating request", Err: err}
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// do performs one HTTP request and decodes the JSON response into result.
// route is a low-cardinality label for the resource, used in logs and metrics.
// A nil body sends no payload; a nil result discards the response body.
func (c *Client) do(ctx context.Context, method, route, path string, query url.Values, body, result any) error {
	start := time.Now()

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(method, route, 0, time.Since(start))
		slog.Debug("HTTP request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return &APIError{Method: method, Path: path, Message: "executing request", Err: err}
	}
	defer resp.Body.Close()

	c.metrics.observe(method, route, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseError(method, path, resp)
		slog.Debug("HTTP request returned error",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return apiErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: "reading response", Err: err}
	}

	if result != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: "decoding response", Err: err}
		}
	} else if len(bytes.TrimSpace(data)) > 0 && !json.Valid(data) {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: "invalid JSON response"}
	}

	slog.Debug("HTTP request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return nil
}

// parseError extracts an APIError from an error response.
func parseError(method, path string, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: errResp.Error}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: msg}
}

// errorResponse is the JSON structure for API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// APIError is the single error type returned for a failed call: a transport
// failure (StatusCode 0), a non-2xx response, or an undecodable body.
// Client methods wrap it with operation context; use errors.As to retrieve it.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("healthyduck API ")
	if e.StatusCode >= 300 {
		fmt.Fprintf(&b, "error %d", e.StatusCode)
	} else {
		b.WriteString("request failed")
	}
	fmt.Fprintf(&b, " (%s %s): %s", e.Method, e.Path, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err carries a 404 response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
