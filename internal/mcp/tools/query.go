package tools

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ultimatequack/healthyduck-go/internal/query"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

// QueryAggregateInput is the input for healthyduck_query_aggregate.
type QueryAggregateInput struct {
	UserID      string   `json:"user_id,omitempty" jsonschema:"User to aggregate (default: configured user)"`
	Days        int      `json:"days,omitempty" jsonschema:"Look back this many days, including today (default: 7, max: 366)"`
	DataTypes   []string `json:"data_types,omitempty" jsonschema:"Data type names to aggregate (default: step count delta)"`
	BucketType  string   `json:"bucket_type,omitempty" jsonschema:"Bucket granularity: hour, day, week or month (default: day)"`
	Expression  string   `json:"expression" jsonschema:"jq expression applied to the raw aggregate response, e.g. .bucket[].dataset[].point[].value[0].fpVal"`
	Deduplicate bool     `json:"deduplicate,omitempty" jsonschema:"Remove duplicate values (default: false)"`
	MaxResults  int      `json:"max_results,omitempty" jsonschema:"Max values to return (default: server setting)"`
}

// QueryAggregateOutput is the output for healthyduck_query_aggregate.
type QueryAggregateOutput struct {
	Values      []any    `json:"values,omitzero"`
	Errors      []string `json:"errors,omitzero"`
	RawCount    int      `json:"raw_count"`
	BucketCount int      `json:"bucket_count"`
	Truncated   bool     `json:"truncated,omitempty"`
}

// ToolQueryAggregate runs an aggregate call and filters the response with jq.
func ToolQueryAggregate(d *Deps) sdkmcp.ToolHandlerFor[QueryAggregateInput, QueryAggregateOutput] {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input QueryAggregateInput) (*sdkmcp.CallToolResult, QueryAggregateOutput, error) {
		if input.Expression == "" {
			return nil, QueryAggregateOutput{}, ErrInvalidInput("expression is required")
		}
		q, err := query.Compile(input.Expression)
		if err != nil {
			return nil, QueryAggregateOutput{}, ErrInvalidInput(err.Error())
		}

		days, err := clampDays(input.Days, defaultDays)
		if err != nil {
			return nil, QueryAggregateOutput{}, err
		}

		bucketType := input.BucketType
		switch bucketType {
		case "":
			bucketType = client.BucketDay
		case client.BucketHour, client.BucketDay, client.BucketWeek, client.BucketMonth:
		default:
			return nil, QueryAggregateOutput{}, ErrInvalidInput(fmt.Sprintf("unknown bucket_type %q", bucketType))
		}

		dataTypes := input.DataTypes
		if len(dataTypes) == 0 {
			dataTypes = []string{client.StepCountDelta}
		}

		maxResults := input.MaxResults
		if maxResults <= 0 && d.Config != nil {
			maxResults = d.Config.QueryMaxResults
		}

		start, end := d.window(days)
		resp, err := d.Client.Aggregate(ctx, d.user(input.UserID), client.AggregateRequest{
			StartTime:  start,
			EndTime:    end,
			DataTypes:  dataTypes,
			BucketType: bucketType,
		})
		if err != nil {
			return nil, QueryAggregateOutput{}, WrapAPIError(err)
		}

		result, err := q.RunValue(resp, query.Options{Deduplicate: input.Deduplicate, MaxResults: maxResults})
		if err != nil {
			return nil, QueryAggregateOutput{}, fmt.Errorf("querying aggregate response: %w", err)
		}

		return nil, QueryAggregateOutput{
			Values:      result.Values,
			Errors:      result.Errors,
			RawCount:    result.RawCount,
			BucketCount: len(resp.Buckets),
			Truncated:   maxResults > 0 && len(result.Values) >= maxResults,
		}, nil
	}
}
