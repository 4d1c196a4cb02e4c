package client

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Response is an undecoded API response.
type Response struct {
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// UserPath returns the API path of a resource below /users/{userID}.
// Segments are path-escaped.
func UserPath(userID string, segments ...string) string {
	return userPath(userID, segments...)
}

// Raw sends one request with the client's credentials and returns the
// response whatever its status. Only transport failures return an error.
// path is relative to the base URL, e.g. UserPath("me", "dataSources").
func (c *Client) Raw(ctx context.Context, method, path string, body any) (*Response, error) {
	start := time.Now()

	req, err := c.newRequest(ctx, method, path, nil, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(method, "raw", 0, time.Since(start))
		return nil, &APIError{Method: method, Path: path, Message: "executing request", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	c.metrics.observe(method, "raw", resp.StatusCode, elapsed)
	if err != nil {
		return nil, &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: "reading response", Err: err}
	}

	slog.Debug("HTTP request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
	)

	return &Response{StatusCode: resp.StatusCode, Body: data, Duration: elapsed}, nil
}
