package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SessionRange filters ListSessions. Zero times are not sent.
type SessionRange struct {
	Start time.Time
	End   time.Time
}

type sessionList struct {
	Session  []Session `json:"session"`
	Sessions []Session `json:"sessions"`
}

// CreateSession records an activity session. Servers require s.ID to be set.
func (c *Client) CreateSession(ctx context.Context, userID string, s Session) (*Session, error) {
	var created Session
	if err := c.do(ctx, http.MethodPost, "sessions", userPath(userID, "sessions"), nil, s, &created); err != nil {
		return nil, fmt.Errorf("creating session %q: %w", s.Name, err)
	}
	return &created, nil
}

// ListSessions retrieves a user's sessions. When r is non-nil its bounds are
// sent as startTime/endTime in Unix nanoseconds and filtered by the server.
func (c *Client) ListSessions(ctx context.Context, userID string, r *SessionRange) ([]Session, error) {
	var query url.Values
	if r != nil {
		query = make(url.Values)
		if !r.Start.IsZero() {
			query.Set("startTime", strconv.FormatInt(r.Start.UnixNano(), 10))
		}
		if !r.End.IsZero() {
			query.Set("endTime", strconv.FormatInt(r.End.UnixNano(), 10))
		}
	}

	var list sessionList
	if err := c.do(ctx, http.MethodGet, "sessions", userPath(userID, "sessions"), query, nil, &list); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	sessions := append(list.Session, list.Sessions...)
	if sessions == nil {
		sessions = []Session{}
	}
	return sessions, nil
}

// GetSession retrieves one session by id.
func (c *Client) GetSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodGet, "session", userPath(userID, "sessions", sessionID), nil, nil, &s); err != nil {
		return nil, fmt.Errorf("getting session %q: %w", sessionID, err)
	}
	return &s, nil
}

// UpdateSession replaces the fields of session sessionID with those of s.
// The server stamps a new modification time.
func (c *Client) UpdateSession(ctx context.Context, userID, sessionID string, s Session) (*Session, error) {
	var updated Session
	if err := c.do(ctx, http.MethodPut, "session", userPath(userID, "sessions", sessionID), nil, s, &updated); err != nil {
		return nil, fmt.Errorf("updating session %q: %w", sessionID, err)
	}
	return &updated, nil
}

// DeleteSession removes a session.
func (c *Client) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if err := c.do(ctx, http.MethodDelete, "session", userPath(userID, "sessions", sessionID), nil, nil, nil); err != nil {
		return fmt.Errorf("deleting session %q: %w", sessionID, err)
	}
	return nil
}
