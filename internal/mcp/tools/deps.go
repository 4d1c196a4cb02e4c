package tools

import (
	"context"
	"time"

	"github.com/ultimatequack/healthyduck-go/internal/cache"
	"github.com/ultimatequack/healthyduck-go/internal/config"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Client   *client.Client
	Cache    *cache.DataSourceCache
	Config   *config.Config
	Location *time.Location

	now func() time.Time
}

// NewDeps wires handler dependencies from the application config.
func NewDeps(c *client.Client, cfg *config.Config) (*Deps, error) {
	dsCache, err := cache.NewDataSourceCache(cfg.DataSourceCacheMaxItems)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Deps{
		Client:   c,
		Cache:    dsCache,
		Config:   cfg,
		Location: loc,
	}, nil
}

// FetchDataSource returns a data source descriptor, from the cache when possible.
func (d *Deps) FetchDataSource(ctx context.Context, userID, dataSourceID string) (*client.DataSource, error) {
	if d.Cache == nil {
		return d.Client.GetDataSource(ctx, userID, dataSourceID)
	}
	return d.Cache.Fetch(ctx, d.Client, userID, dataSourceID)
}

// user returns the requested user id or the configured default.
func (d *Deps) user(userID string) string {
	if userID != "" {
		return userID
	}
	if d.Config != nil && d.Config.UserID != "" {
		return d.Config.UserID
	}
	return config.DefaultUserID
}

func (d *Deps) loc() *time.Location {
	if d.Location != nil {
		return d.Location
	}
	return time.Local
}

func (d *Deps) clock() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}

// window returns the half-open range covering the last days days, ending at
// the start of tomorrow in the handler's location.
func (d *Deps) window(days int) (time.Time, time.Time) {
	now := d.clock().In(d.loc())
	end := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, d.loc())
	return end.AddDate(0, 0, -days), end
}
