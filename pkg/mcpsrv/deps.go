package mcpsrv

import (
	"time"

	"github.com/ultimatequack/healthyduck-go/internal/cache"
	"github.com/ultimatequack/healthyduck-go/internal/config"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

// Deps contains the dependencies available to custom tools.
// Custom tools share the client and data source cache with the builtin tools.
type Deps struct {
	Client   *client.Client
	Cache    *cache.DataSourceCache
	Config   *config.Config
	Location *time.Location
}
