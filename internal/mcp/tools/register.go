package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names.
const (
	NameListDataSources  = "healthyduck_list_data_sources"
	NameGetDataSource    = "healthyduck_get_data_source"
	NameListSessions     = "healthyduck_list_sessions"
	NameGetProfile       = "healthyduck_get_profile"
	NameDailySteps       = "healthyduck_daily_steps"
	NameActivitySummary  = "healthyduck_activity_summary"
	NameWeeklyTrends     = "healthyduck_weekly_trends"
	NameActivityPatterns = "healthyduck_activity_patterns"
	NameQueryAggregate   = "healthyduck_query_aggregate"
)

// Register registers all tools with the MCP server. Every tool is read-only.
func Register(srv *sdkmcp.Server, d *Deps) {
	readOnly := &sdkmcp.ToolAnnotations{ReadOnlyHint: true}

	AddTool(srv, &sdkmcp.Tool{
		Name:        NameListDataSources,
		Description: "List a user's data sources (data_stream_id, name, type, data types). Use data_stream_id with healthyduck_get_data_source.",
		Annotations: readOnly,
	}, ToolListDataSources(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        NameGetDataSource,
		Description: "Get one data source by data_stream_id. Descriptors are cached.",
		Annotations: readOnly,
	}, ToolGetDataSource(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        NameListSessions,
		Description: "List activity sessions from the last N days with start/end time, duration in minutes and activity type code.",
		Annotations: readOnly,
	}, ToolListSessions(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        NameGetProfile,
		Description: "Get a user's profile and counts of data sources, data points and sessions.",
		Annotations: readOnly,
	}, ToolGetProfile(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        NameDailySteps,
		Description: "Daily step counts for the last N days (default 7), one row per day that has data, plus the total.",
		Annotations: readOnly,
	}, ToolDailySteps(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        NameActivitySummary,
		Description: "Summary over the last N days (default 30): total, average and max daily steps, active days, session count, workout minutes and activity types.",
		Annotations: readOnly,
	}, ToolActivitySummary(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        NameWeeklyTrends,
		Description: "Weekly step trends over the last N days (default 30): per ISO week sum, mean, standard deviation and day count.",
		Annotations: readOnly,
	}, ToolWeeklyTrends(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        NameActivityPatterns,
		Description: "Workout patterns over the last N days (default 30): top 3 start hours, sessions per weekday, average duration and top 5 activity types.",
		Annotations: readOnly,
	}, ToolActivityPatterns(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        NameQueryAggregate,
		Description: "Run an aggregate request and extract values from the raw response with a jq expression. Returns values, runtime errors and counts. Response shape: {bucket: [{startTimeMillis, endTimeMillis, dataset: [{point: [{dataTypeName, value: [{intVal|fpVal}]}]}]}]}.",
		Annotations: readOnly,
	}, ToolQueryAggregate(d))
}
