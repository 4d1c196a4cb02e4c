package client

import (
	"context"
	"fmt"
	"net/http"
)

// dataSourceList accepts both envelope names used by HealthyDuck servers.
type dataSourceList struct {
	DataSource  []DataSource `json:"dataSource"`
	DataSources []DataSource `json:"dataSources"`
}

// CreateDataSource registers a new data source for a user and returns the
// server's view of it.
func (c *Client) CreateDataSource(ctx context.Context, userID string, ds DataSource) (*DataSource, error) {
	var created DataSource
	if err := c.do(ctx, http.MethodPost, "dataSources", userPath(userID, "dataSources"), nil, ds, &created); err != nil {
		return nil, fmt.Errorf("creating data source %q: %w", ds.DataStreamID, err)
	}
	return &created, nil
}

// ListDataSources retrieves all data sources of a user.
func (c *Client) ListDataSources(ctx context.Context, userID string) ([]DataSource, error) {
	var list dataSourceList
	if err := c.do(ctx, http.MethodGet, "dataSources", userPath(userID, "dataSources"), nil, nil, &list); err != nil {
		return nil, fmt.Errorf("listing data sources: %w", err)
	}
	sources := append(list.DataSource, list.DataSources...)
	if sources == nil {
		sources = []DataSource{}
	}
	return sources, nil
}

// GetDataSource retrieves one data source by its data stream id.
func (c *Client) GetDataSource(ctx context.Context, userID, dataSourceID string) (*DataSource, error) {
	var ds DataSource
	if err := c.do(ctx, http.MethodGet, "dataSource", userPath(userID, "dataSources", dataSourceID), nil, nil, &ds); err != nil {
		return nil, fmt.Errorf("getting data source %q: %w", dataSourceID, err)
	}
	return &ds, nil
}

// DeleteDataSource removes a data source.
func (c *Client) DeleteDataSource(ctx context.Context, userID, dataSourceID string) error {
	if err := c.do(ctx, http.MethodDelete, "dataSource", userPath(userID, "dataSources", dataSourceID), nil, nil, nil); err != nil {
		return fmt.Errorf("deleting data source %q: %w", dataSourceID, err)
	}
	return nil
}
