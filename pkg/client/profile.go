package client

import (
	"context"
	"fmt"
	"net/http"
)

// GetProfile retrieves a user's profile and record counts.
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "profile", userPath(userID, "profile"), nil, nil, &p); err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return &p, nil
}

type profileUpdate struct {
	DisplayName string `json:"displayName"`
}

// UpdateProfile sets a user's display name. The returned profile carries no
// statistics.
func (c *Client) UpdateProfile(ctx context.Context, userID, displayName string) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodPut, "profile", userPath(userID, "profile"), nil, profileUpdate{DisplayName: displayName}, &p); err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return &p, nil
}
