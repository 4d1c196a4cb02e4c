package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ultimatequack/healthyduck-go/pkg/analysis"
)

// StepsInput is the input for the step analysis tools.
type StepsInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"User to analyze (default: configured user)"`
	Days   int    `json:"days,omitempty" jsonschema:"Look back this many days, including today (default: 7 for daily_steps, 30 otherwise; max: 366)"`
}

// DailyStepsOutput is the output for healthyduck_daily_steps.
type DailyStepsOutput struct {
	Days       []DayInfo `json:"days,omitzero"`
	TotalSteps int64     `json:"total_steps"`
}

// ActivitySummaryOutput is the output for healthyduck_activity_summary.
type ActivitySummaryOutput struct {
	StartDate string                   `json:"start_date"`
	EndDate   string                   `json:"end_date"`
	Summary   analysis.ActivitySummary `json:"summary"`
}

// WeeklyTrendsOutput is the output for healthyduck_weekly_trends.
type WeeklyTrendsOutput struct {
	Weeks []analysis.WeeklyTrend `json:"weeks,omitzero"`
}

// ActivityPatternsOutput is the output for healthyduck_activity_patterns.
type ActivityPatternsOutput struct {
	Patterns analysis.ActivityPatterns `json:"patterns"`
}

const defaultAnalysisDays = 30

// ToolDailySteps returns one step count per day.
func ToolDailySteps(d *Deps) sdkmcp.ToolHandlerFor[StepsInput, DailyStepsOutput] {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input StepsInput) (*sdkmcp.CallToolResult, DailyStepsOutput, error) {
		days, err := clampDays(input.Days, defaultDays)
		if err != nil {
			return nil, DailyStepsOutput{}, err
		}

		start, end := d.window(days)
		counts, err := analysis.FetchDailySteps(ctx, d.Client, d.user(input.UserID), start, end, d.loc())
		if err != nil {
			return nil, DailyStepsOutput{}, WrapAPIError(err)
		}

		output := DailyStepsOutput{Days: toDayInfos(counts)}
		for _, c := range counts {
			output.TotalSteps += c.Steps
		}
		return nil, output, nil
	}
}

// ToolActivitySummary rolls up steps and sessions over a window.
func ToolActivitySummary(d *Deps) sdkmcp.ToolHandlerFor[StepsInput, ActivitySummaryOutput] {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input StepsInput) (*sdkmcp.CallToolResult, ActivitySummaryOutput, error) {
		days, err := clampDays(input.Days, defaultAnalysisDays)
		if err != nil {
			return nil, ActivitySummaryOutput{}, err
		}

		start, end := d.window(days)
		summary, err := analysis.FetchActivitySummary(ctx, d.Client, d.user(input.UserID), start, end, d.loc())
		if err != nil {
			return nil, ActivitySummaryOutput{}, WrapAPIError(err)
		}

		return nil, ActivitySummaryOutput{
			StartDate: start.Format(dateLayout),
			EndDate:   end.AddDate(0, 0, -1).Format(dateLayout),
			Summary:   *summary,
		}, nil
	}
}

// ToolWeeklyTrends groups daily steps by ISO week.
func ToolWeeklyTrends(d *Deps) sdkmcp.ToolHandlerFor[StepsInput, WeeklyTrendsOutput] {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input StepsInput) (*sdkmcp.CallToolResult, WeeklyTrendsOutput, error) {
		days, err := clampDays(input.Days, defaultAnalysisDays)
		if err != nil {
			return nil, WeeklyTrendsOutput{}, err
		}

		start, end := d.window(days)
		counts, err := analysis.FetchDailySteps(ctx, d.Client, d.user(input.UserID), start, end, d.loc())
		if err != nil {
			return nil, WeeklyTrendsOutput{}, WrapAPIError(err)
		}
		return nil, WeeklyTrendsOutput{Weeks: analysis.WeeklyTrends(counts)}, nil
	}
}

// ToolActivityPatterns reports preferred workout hours, days and activities.
func ToolActivityPatterns(d *Deps) sdkmcp.ToolHandlerFor[StepsInput, ActivityPatternsOutput] {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input StepsInput) (*sdkmcp.CallToolResult, ActivityPatternsOutput, error) {
		days, err := clampDays(input.Days, defaultAnalysisDays)
		if err != nil {
			return nil, ActivityPatternsOutput{}, err
		}

		start, end := d.window(days)
		sessions, err := analysis.FetchSessions(ctx, d.Client, d.user(input.UserID), start, end)
		if err != nil {
			return nil, ActivityPatternsOutput{}, WrapAPIError(err)
		}
		return nil, ActivityPatternsOutput{Patterns: analysis.DetectActivityPatterns(sessions, d.loc())}, nil
	}
}
