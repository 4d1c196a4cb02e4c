package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ultimatequack/healthyduck-go/pkg/analysis"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

// ListSessionsInput is the input for healthyduck_list_sessions.
type ListSessionsInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"User whose sessions to list (default: configured user)"`
	Days   int    `json:"days,omitempty" jsonschema:"Look back this many days, including today (default: 7, max: 366)"`
}

// ListSessionsOutput is the output for healthyduck_list_sessions.
type ListSessionsOutput struct {
	Sessions []SessionInfo `json:"sessions,omitzero"`
	Count    int           `json:"count"`
}

// ProfileInput is the input for healthyduck_get_profile.
type ProfileInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"User whose profile to fetch (default: configured user)"`
}

// ProfileOutput is the output for healthyduck_get_profile.
type ProfileOutput struct {
	UserID           string `json:"user_id"`
	Email            string `json:"email"`
	DisplayName      string `json:"display_name,omitempty"`
	DataSourcesCount int    `json:"data_sources_count"`
	DataPointsCount  int    `json:"data_points_count"`
	SessionsCount    int    `json:"sessions_count"`
}

// ToolListSessions lists sessions in a trailing window of days.
func ToolListSessions(d *Deps) sdkmcp.ToolHandlerFor[ListSessionsInput, ListSessionsOutput] {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ListSessionsInput) (*sdkmcp.CallToolResult, ListSessionsOutput, error) {
		days, err := clampDays(input.Days, defaultDays)
		if err != nil {
			return nil, ListSessionsOutput{}, err
		}

		start, end := d.window(days)
		sessions, err := analysis.FetchSessions(ctx, d.Client, d.user(input.UserID), start, end)
		if err != nil {
			return nil, ListSessionsOutput{}, WrapAPIError(err)
		}

		return nil, ListSessionsOutput{
			Sessions: toSessionInfos(sessions, d.loc()),
			Count:    len(sessions),
		}, nil
	}
}

// ToolGetProfile returns a user's profile and record counts.
func ToolGetProfile(d *Deps) sdkmcp.ToolHandlerFor[ProfileInput, ProfileOutput] {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ProfileInput) (*sdkmcp.CallToolResult, ProfileOutput, error) {
		p, err := d.Client.GetProfile(ctx, d.user(input.UserID))
		if err != nil {
			return nil, ProfileOutput{}, WrapAPIError(err)
		}
		return nil, profileOutput(p), nil
	}
}

func profileOutput(p *client.Profile) ProfileOutput {
	return ProfileOutput{
		UserID:           p.UserID,
		Email:            p.Email,
		DisplayName:      p.DisplayName,
		DataSourcesCount: p.Statistics.DataSourcesCount,
		DataPointsCount:  p.Statistics.DataPointsCount,
		SessionsCount:    p.Statistics.SessionsCount,
	}
}
