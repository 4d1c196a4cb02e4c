package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

// ListDataSourcesInput is the input for healthyduck_list_data_sources.
type ListDataSourcesInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"User whose data sources to list (default: configured user)"`
}

// ListDataSourcesOutput is the output for healthyduck_list_data_sources.
type ListDataSourcesOutput struct {
	DataSources []DataSourceInfo `json:"data_sources,omitzero"`
	Count       int              `json:"count"`
}

// GetDataSourceInput is the input for healthyduck_get_data_source.
type GetDataSourceInput struct {
	UserID       string `json:"user_id,omitempty" jsonschema:"Owner of the data source (default: configured user)"`
	DataSourceID string `json:"data_source_id" jsonschema:"Data stream id of the data source"`
}

// GetDataSourceOutput is the output for healthyduck_get_data_source.
type GetDataSourceOutput struct {
	DataSource DataSourceInfo `json:"data_source"`
}

// ToolListDataSources lists a user's data sources and caches their descriptors.
func ToolListDataSources(d *Deps) sdkmcp.ToolHandlerFor[ListDataSourcesInput, ListDataSourcesOutput] {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ListDataSourcesInput) (*sdkmcp.CallToolResult, ListDataSourcesOutput, error) {
		userID := d.user(input.UserID)
		sources, err := d.Client.ListDataSources(ctx, userID)
		if err != nil {
			return nil, ListDataSourcesOutput{}, WrapAPIError(err)
		}
		if d.Cache != nil {
			d.Cache.PutAll(userID, sources)
		}

		output := ListDataSourcesOutput{
			DataSources: make([]DataSourceInfo, len(sources)),
			Count:       len(sources),
		}
		for i := range sources {
			output.DataSources[i] = toDataSourceInfo(&sources[i])
		}
		return nil, output, nil
	}
}

// ToolGetDataSource returns one data source, from the cache when possible.
func ToolGetDataSource(d *Deps) sdkmcp.ToolHandlerFor[GetDataSourceInput, GetDataSourceOutput] {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input GetDataSourceInput) (*sdkmcp.CallToolResult, GetDataSourceOutput, error) {
		if input.DataSourceID == "" {
			return nil, GetDataSourceOutput{}, ErrInvalidInput("data_source_id is required")
		}

		ds, err := d.FetchDataSource(ctx, d.user(input.UserID), input.DataSourceID)
		if err != nil {
			if client.IsNotFound(err) {
				return nil, GetDataSourceOutput{}, ErrNotFound("data source", input.DataSourceID)
			}
			return nil, GetDataSourceOutput{}, WrapAPIError(err)
		}
		return nil, GetDataSourceOutput{DataSource: toDataSourceInfo(ds)}, nil
	}
}
