// Package cache provides caching utilities for the MCP server.
package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

// DataSourceGetter fetches one data source. *client.Client implements it.
type DataSourceGetter interface {
	GetDataSource(ctx context.Context, userID, dataSourceID string) (*client.DataSource, error)
}

// DataSourceCache provides thread-safe LRU caching of data source
// descriptors, keyed by user and data stream id.
type DataSourceCache struct {
	cache *lru.Cache[string, *client.DataSource]
}

// NewDataSourceCache creates a new LRU cache with the specified maximum number of items.
func NewDataSourceCache(maxItems int) (*DataSourceCache, error) {
	c, err := lru.New[string, *client.DataSource](maxItems)
	if err != nil {
		return nil, err
	}
	return &DataSourceCache{cache: c}, nil
}

func key(userID, dataSourceID string) string {
	return userID + "\x00" + dataSourceID
}

// Get retrieves a data source from the cache.
// Returns the data source and true if found, nil and false otherwise.
func (c *DataSourceCache) Get(userID, dataSourceID string) (*client.DataSource, bool) {
	return c.cache.Get(key(userID, dataSourceID))
}

// Put adds or updates a data source in the cache.
func (c *DataSourceCache) Put(userID string, ds *client.DataSource) {
	c.cache.Add(key(userID, ds.DataStreamID), ds)
}

// PutAll caches every data source in a listing.
func (c *DataSourceCache) PutAll(userID string, sources []client.DataSource) {
	for i := range sources {
		c.Put(userID, &sources[i])
	}
}

// Remove drops a data source from the cache.
func (c *DataSourceCache) Remove(userID, dataSourceID string) {
	c.cache.Remove(key(userID, dataSourceID))
}

// Fetch returns the cached data source, or loads it with g and caches it.
// Errors are not cached.
func (c *DataSourceCache) Fetch(ctx context.Context, g DataSourceGetter, userID, dataSourceID string) (*client.DataSource, error) {
	if ds, ok := c.Get(userID, dataSourceID); ok {
		return ds, nil
	}
	ds, err := g.GetDataSource(ctx, userID, dataSourceID)
	if err != nil {
		return nil, err
	}
	c.Put(userID, ds)
	return ds, nil
}

// Len returns the current number of items in the cache.
func (c *DataSourceCache) Len() int {
	return c.cache.Len()
}
