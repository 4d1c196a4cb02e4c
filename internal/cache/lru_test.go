package cache

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultimatequack/healthyduck-go/internal/testsupport"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

func TestDataSourceCache_eviction(t *testing.T) {
	c, err := NewDataSourceCache(2)
	require.NoError(t, err)

	c.PutAll("u1", []client.DataSource{{DataStreamID: "a"}, {DataStreamID: "b"}})
	c.Put("u2", &client.DataSource{DataStreamID: "a"})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("u1", "a")
	assert.False(t, ok, "oldest entry evicted")

	ds, ok := c.Get("u2", "a")
	require.True(t, ok)
	assert.Equal(t, "a", ds.DataStreamID)

	c.Remove("u2", "a")
	_, ok = c.Get("u2", "a")
	assert.False(t, ok)
}

func TestNewDataSourceCache_invalidSize(t *testing.T) {
	_, err := NewDataSourceCache(0)
	assert.Error(t, err)
}

func TestDataSourceCache_Fetch(t *testing.T) {
	srv := testsupport.NewFitServer(t, "tok")
	cl := client.New(client.WithBaseURL(srv.URL), client.WithAccessToken("tok"))
	ctx := context.Background()
	_, err := cl.CreateDataSource(ctx, "u1", client.StepsDataSource("steps:1", "Steps"))
	require.NoError(t, err)

	c, err := NewDataSourceCache(8)
	require.NoError(t, err)

	for range 3 {
		ds, err := c.Fetch(ctx, cl, "u1", "steps:1")
		require.NoError(t, err)
		assert.Equal(t, client.StepCountDelta, ds.DataTypes[0].Name)
	}
	assert.Len(t, srv.RequestsMatching(http.MethodGet, "/dataSources/steps:1"), 1)

	_, err = c.Fetch(ctx, cl, "u1", "missing")
	assert.True(t, client.IsNotFound(err))
	assert.Equal(t, 1, c.Len())
}
